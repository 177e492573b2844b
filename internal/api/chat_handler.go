package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gearshop/internal/auth"
	"github.com/gearshop/internal/chat"
)

// ChatService handles one assistant turn.
type ChatService interface {
	Handle(ctx context.Context, req chat.Request) (chat.Response, error)
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func chatHandler(svc ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req ChatRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		}
		if strings.TrimSpace(req.Message) == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "message is required"})
		}
		if req.ConversationID == "" {
			req.ConversationID = uuid.NewString()
		}

		resp, err := svc.Handle(c.Request().Context(), chat.Request{
			ConversationID: req.ConversationID,
			Message:        req.Message,
			UserID:         auth.UserID(c),
		})
		if err != nil {
			// Backend details stay server-side; the client only learns the
			// turn failed.
			log.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Chat turn failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "chat failed"})
		}

		return c.JSON(http.StatusOK, resp)
	}
}
