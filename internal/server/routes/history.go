package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

// GetHistoryHandler returns a session transcript, oldest first.
func GetHistoryHandler(c echo.Context) error {
	type historyQuery struct {
		Limit int `query:"limit"`
	}

	type historyResponse struct {
		SessionID string                 `json:"session_id"`
		Messages  []store.HistoryMessage `json:"messages"`
	}

	sessionID := c.Param("session_id")
	params := new(historyQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	messages, err := app.Store.Read(c.Request().Context(), sessionID, params.Limit)
	if err != nil {
		logger.Error("history read failed", "session_id", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, historyResponse{SessionID: sessionID, Messages: messages})
}

// DeleteHistoryHandler clears a session transcript.
func DeleteHistoryHandler(c echo.Context) error {
	sessionID := c.Param("session_id")

	app := c.(*middleware.AppContext).App
	deleted, err := app.Store.Clear(c.Request().Context(), sessionID)
	if err != nil {
		logger.Error("history clear failed", "session_id", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"deleted":    deleted,
	})
}

// GetSessionsHandler lists recent chat sessions.
func GetSessionsHandler(c echo.Context) error {
	type sessionsQuery struct {
		Limit int `query:"limit"`
	}

	params := new(sessionsQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	sessions, err := app.Store.Sessions(c.Request().Context(), params.Limit)
	if err != nil {
		logger.Error("session listing failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}
