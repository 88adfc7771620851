package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

const maxResolveTries = 3

type duplicateMapping struct {
	Duplicates map[string]string `json:"duplicates"`
}

type Resolver struct {
	aiClient ai.GraphAIClient
}

type NewResolverParams struct {
	AIClient ai.GraphAIClient
}

func NewResolver(params NewResolverParams) *Resolver {
	return &Resolver{aiClient: params.AIClient}
}

// Resolve asks the model which entities in the batch refer to the same
// real-world thing and returns duplicate name to canonical name. Fewer than
// two entities short-circuits without a model call. Resolution is advisory:
// any failure degrades to an empty mapping and never blocks indexing. The
// mapping is not applied here; merging is the caller's concern.
func (r *Resolver) Resolve(ctx context.Context, entities []ExtractedEntity) map[string]string {
	if len(entities) < 2 {
		return map[string]string{}
	}

	done := timing.Observe("resolve_entities")

	lines := make([]string, 0, len(entities))
	for _, entity := range entities {
		entityType := entity.Type
		if entityType == "" {
			entityType = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", entity.Name, entityType, util.Truncate(entity.Description, 100, "")))
	}

	prompt := fmt.Sprintf(ai.ResolveEntitiesPrompt, strings.Join(lines, "\n"))

	var mapping duplicateMapping
	err := util.RetryErrWithContext(ctx, maxResolveTries, func(ctx context.Context) error {
		return r.aiClient.GenerateCompletionWithFormat(ctx,
			"entity_resolution",
			"Mapping from duplicate entity names to their canonical name",
			prompt,
			&mapping,
			ai.WithTemperature(0.0),
			ai.WithMaxTokens(1000),
		)
	})
	if err != nil {
		logger.Error("entity resolution failed, skipping merge", "err", err)
		done(err)
		return map[string]string{}
	}

	if mapping.Duplicates == nil {
		mapping.Duplicates = map[string]string{}
	}
	done(nil)
	return mapping.Duplicates
}
