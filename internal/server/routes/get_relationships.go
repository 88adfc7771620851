package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// GetRelationshipsHandler lists the edges touching one entity, outgoing by
// default or incoming with direction=in.
func GetRelationshipsHandler(c echo.Context) error {
	type relationshipsQuery struct {
		EntityID  string `query:"entity_id" validate:"required"`
		Direction string `query:"direction"`
		Type      string `query:"type"`
		Limit     int    `query:"limit"`
	}

	type relationshipsResponse struct {
		Relationships []common.Relationship `json:"relationships"`
		Count         int                   `json:"count"`
	}

	params := new(relationshipsQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid query parameters"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "entity_id is required"})
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	var relationships []common.Relationship
	var err error
	if params.Direction == "in" {
		relationships, err = app.Store.GetIncomingRelationships(ctx, params.EntityID, params.Type, params.Limit)
	} else {
		relationships, err = app.Store.GetOutgoingRelationships(ctx, params.EntityID, params.Type, params.Limit)
	}
	if err != nil {
		logger.Error("relationship listing failed", "entity_id", params.EntityID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, relationshipsResponse{Relationships: relationships, Count: len(relationships)})
}
