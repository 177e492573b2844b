// Package auth resolves an optional user identity from a bearer token. The
// chat endpoints work without a login; an identity only unlocks personalized
// recommendations.
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const userIDContextKey = "user_no"

// claims carries the user number issued by the storefront login service.
type claims struct {
	UserNo int64 `json:"userNo"`
	jwt.RegisteredClaims
}

// OptionalIdentity parses an Authorization bearer token when present.
// Missing or invalid tokens leave the request anonymous; they are never an
// error, because the assistant must keep working for logged-out visitors.
func OptionalIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" || secret == "" {
				return next(c)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return next(c)
			}

			token, err := jwt.ParseWithClaims(parts[1], &claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Debug().Err(err).Msg("Bearer token rejected, treating request as anonymous")
				return next(c)
			}

			if cl, ok := token.Claims.(*claims); ok && cl.UserNo != 0 {
				c.Set(userIDContextKey, cl.UserNo)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user number, or nil for anonymous
// requests.
func UserID(c echo.Context) *int64 {
	v := c.Get(userIDContextKey)
	if v == nil {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}
