package routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/traverse"
)

// GetTraverseHandler expands the graph neighborhood of one entity.
func GetTraverseHandler(c echo.Context) error {
	type traverseQuery struct {
		EntityID string `query:"entity_id" validate:"required"`
		Depth    int    `query:"depth"`
		RelTypes string `query:"rel_types"`
		Dedupe   bool   `query:"dedupe"`
	}

	params := new(traverseQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "entity_id is required"})
	}
	if params.Depth <= 0 {
		params.Depth = 2
	}

	var relTypes []string
	for _, relType := range strings.Split(params.RelTypes, ",") {
		if relType = strings.TrimSpace(relType); relType != "" {
			relTypes = append(relTypes, relType)
		}
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Traverser.Traverse(c.Request().Context(), params.EntityID, params.Depth, relTypes,
		traverse.WithDedupeEdges(params.Dedupe))
	if err != nil {
		logger.Error("traversal failed", "entity_id", params.EntityID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, result)
}
