package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// GetCommunitiesHandler lists communities at a clustering level, largest
// first.
func GetCommunitiesHandler(c echo.Context) error {
	type communitiesQuery struct {
		Level int `query:"level"`
		Limit int `query:"limit"`
	}

	type communitiesResponse struct {
		Communities []common.Community `json:"communities"`
		Count       int                `json:"count"`
	}

	params := new(communitiesQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	communities, err := app.Store.GetCommunitiesByLevel(c.Request().Context(), params.Level, params.Limit)
	if err != nil {
		logger.Error("community listing failed", "level", params.Level, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, communitiesResponse{Communities: communities, Count: len(communities)})
}
