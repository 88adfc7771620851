package server

import (
	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", routes.GetHealthHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Chat routes
	apiRoutes.POST("/chat", routes.PostChatHandler)
	apiRoutes.GET("/chat/sessions", routes.GetSessionsHandler)
	apiRoutes.GET("/chat/history/:session_id", routes.GetHistoryHandler)
	apiRoutes.DELETE("/chat/history/:session_id", routes.DeleteHistoryHandler)

	// Graph inspection routes
	apiRoutes.GET("/graph/entities", routes.GetEntitiesHandler)
	apiRoutes.GET("/graph/relationships", routes.GetRelationshipsHandler)
	apiRoutes.GET("/graph/traverse", routes.GetTraverseHandler)
	apiRoutes.GET("/graph/communities", routes.GetCommunitiesHandler)

	// Indexing routes
	apiRoutes.POST("/index", routes.PostIndexHandler)
}
