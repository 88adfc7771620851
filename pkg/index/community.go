package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

const maxKeyEntities = 5

// BuildCommunity synthesizes a summary for a pre-computed entity cluster and
// persists it. Clustering itself happens upstream; this only turns a cluster
// into a Community record. Summary generation failures fall back to a plain
// member listing so the community still contributes to global context.
func (p *Pipeline) BuildCommunity(ctx context.Context, name string, level int, members []common.Entity, relationships []common.Relationship) (*common.Community, error) {
	entityIDs := make([]string, 0, len(members))
	entityLines := make([]string, 0, len(members))
	names := make([]string, 0, len(members))
	for _, member := range members {
		entityIDs = append(entityIDs, member.ID)
		names = append(names, member.Name)
		entityLines = append(entityLines, fmt.Sprintf("- %s (%s): %s", member.Name, member.Type, member.Description))
	}

	relLines := make([]string, 0, len(relationships))
	for _, rel := range relationships {
		relLines = append(relLines, fmt.Sprintf("- %s -> %s (%s)", rel.SourceID, rel.TargetID, rel.Type))
	}

	summary := p.summarizeCommunity(ctx, entityLines, relLines)
	if summary == "" {
		summary = "A community containing: " + strings.Join(names, ", ")
	}

	keyEntities := names
	if len(keyEntities) > maxKeyEntities {
		keyEntities = keyEntities[:maxKeyEntities]
	}

	community := &common.Community{
		Name:        name,
		Level:       level,
		Summary:     summary,
		EntityIDs:   entityIDs,
		KeyEntities: keyEntities,
		EntityCount: len(entityIDs),
	}
	if err := p.graphStore.CreateCommunity(ctx, community); err != nil {
		return nil, fmt.Errorf("failed to store community %q: %w", name, err)
	}
	return community, nil
}

func (p *Pipeline) summarizeCommunity(ctx context.Context, entityLines []string, relLines []string) string {
	prompt := fmt.Sprintf(ai.CommunitySummaryPrompt, strings.Join(entityLines, "\n"), strings.Join(relLines, "\n"))
	summary, err := p.aiClient.GenerateCompletion(ctx, prompt,
		ai.WithTemperature(0.3),
		ai.WithMaxTokens(300),
	)
	if err != nil {
		logger.Warn("community summary generation failed, using member listing", "err", err)
		return ""
	}
	return strings.TrimSpace(summary)
}
