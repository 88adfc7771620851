package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// GetEntitiesHandler searches the entity collection by name or type.
func GetEntitiesHandler(c echo.Context) error {
	type entitiesQuery struct {
		Type  string `query:"type"`
		Name  string `query:"name"`
		Limit int    `query:"limit"`
	}

	type entitiesResponse struct {
		Entities []common.Entity `json:"entities"`
		Count    int             `json:"count"`
	}

	params := new(entitiesQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	var entities []common.Entity
	var err error
	switch {
	case params.Name != "":
		entities, err = app.Store.FindEntitiesByName(ctx, params.Name, params.Type, params.Limit)
	case params.Type != "":
		entities, err = app.Store.GetEntitiesByType(ctx, params.Type, params.Limit)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Provide 'type' or 'name' parameter to search entities",
		})
	}
	if err != nil {
		logger.Error("entity search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, entitiesResponse{Entities: entities, Count: len(entities)})
}
