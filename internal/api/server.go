// Package api exposes the HTTP surface: the chat endpoint plus the thin
// catalog endpoints the storefront consumes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gearshop/internal/auth"
	"github.com/gearshop/internal/catalog"
)

// Server represents the API server
type Server struct {
	echo *echo.Echo
	port int
}

// NewServer creates a new API server
func NewServer(port int, chatSvc ChatService, accessor *catalog.Accessor, jwtSecret string) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(auth.OptionalIdentity(jwtSecret))

	server := &Server{
		echo: e,
		port: port,
	}

	server.setupRoutes(chatSvc, accessor)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(chatSvc ChatService, accessor *catalog.Accessor) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	api := s.echo.Group("/api")
	api.POST("/chat", chatHandler(chatSvc))
	api.GET("/recommend", recommendHandler(accessor))
	api.GET("/products/:id", productDetailHandler(accessor))
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()
	log.Info().Int("port", s.port).Msg("API server started")

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
