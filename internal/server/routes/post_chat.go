package routes

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/query"
)

// PostChatHandler answers one chat turn. A missing session id starts a new
// session.
func PostChatHandler(c echo.Context) error {
	type chatBody struct {
		Message   string `json:"message" validate:"required"`
		SessionID string `json:"session_id"`
	}

	type chatResponse struct {
		*query.ChatResult
		SessionID string `json:"session_id"`
	}

	data := new(chatBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if strings.TrimSpace(data.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Message is required"})
	}

	sessionID := data.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Orchestrator.Chat(c.Request().Context(), data.Message, sessionID)
	if err != nil {
		logger.Error("chat turn failed", "session_id", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "An error occurred processing your request",
		})
	}

	return c.JSON(http.StatusOK, chatResponse{ChatResult: result, SessionID: sessionID})
}
