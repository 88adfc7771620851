package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
)

// GetHealthHandler reports liveness plus which collaborators were wired at
// startup, so a deployment with e.g. no object storage is visible without
// reading logs.
func GetHealthHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	app := cc.App

	return c.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"services": map[string]bool{
			"database": app.DBConn != nil,
			"ai":       app.AIClient != nil,
			"queue":    app.Queue != nil,
			"storage":  app.S3 != nil,
			"auth":     app.Key != nil,
		},
	})
}
