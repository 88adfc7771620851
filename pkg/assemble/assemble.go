// Package assemble builds the grounding context for answer generation. It
// merges knowledge-graph findings, community summaries and document search
// hits into bounded text blocks, following the OmniRAG pattern: the graph
// shows how things connect, the documents show what is said about them.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/analyze"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

const (
	maxEntitiesPerName   = 3
	maxRelsPerEntity     = 10
	maxRelationshipLines = 15
	maxCommunities       = 3
	communityTruncateAt  = 500
	fallbackSummaryCount = 5
	searchTopK           = 5
	excerptLength        = 500
)

// Source attributes a document hit in the response metadata.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Context is the assembled grounding material for one chat turn.
type Context struct {
	Graph   string
	Vector  string
	Sources []Source
}

// GraphUsed reports whether the graph block carries actual content, not
// whether the strategy merely requested it.
func (c *Context) GraphUsed() bool { return c.Graph != "" }

// VectorUsed reports whether the vector block carries actual content.
func (c *Context) VectorUsed() bool { return c.Vector != "" }

type Assembler struct {
	graphStore store.GraphStore
	search     store.DocumentSearch
}

type NewAssemblerParams struct {
	GraphStore store.GraphStore
	Search     store.DocumentSearch
}

func NewAssembler(params NewAssemblerParams) *Assembler {
	return &Assembler{
		graphStore: params.GraphStore,
		search:     params.Search,
	}
}

// Build gathers context for the question according to the strategy. Retrieval
// failures degrade to empty blocks so the turn can still be answered,
// possibly ungrounded.
func (a *Assembler) Build(ctx context.Context, strategy analyze.Strategy, entityNames []string, question string) *Context {
	done := timing.Observe("assemble_context")

	result := &Context{Sources: []Source{}}

	if strategy == analyze.StrategyGraph || strategy == analyze.StrategyHybrid {
		if len(entityNames) > 0 {
			graph, err := a.buildGraphContext(ctx, entityNames)
			if err != nil {
				logger.Warn("graph context retrieval failed, continuing without it", "err", err)
			} else {
				result.Graph = graph
			}
		} else {
			// No entities matched the question: fall back to community
			// summaries for global context.
			summaries, err := a.graphStore.GetCommunitySummaries(ctx, nil, fallbackSummaryCount)
			if err != nil {
				logger.Warn("community summary retrieval failed, continuing without it", "err", err)
			} else if len(summaries) > 0 {
				lines := make([]string, 0, len(summaries))
				for _, summary := range summaries {
					lines = append(lines, "- "+summary)
				}
				result.Graph = "## Knowledge Graph Summaries:\n" + strings.Join(lines, "\n")
			}
		}
	}

	if strategy == analyze.StrategyVector || strategy == analyze.StrategyHybrid {
		hits, err := a.search.Search(ctx, question, searchTopK)
		if err != nil {
			logger.Warn("document search failed, continuing without it", "err", err)
		} else if len(hits) > 0 {
			var sb strings.Builder
			sb.WriteString("## Retrieved Documents:\n")
			for i, hit := range hits {
				title := hit.Title
				if title == "" {
					title = "Document"
				}
				fmt.Fprintf(&sb, "\n### [%d] %s\n%s\n", i+1, title, util.Truncate(hit.Content, excerptLength, ""))
				result.Sources = append(result.Sources, Source{
					Title: title,
					URL:   hit.URL,
					Score: hit.Score,
				})
			}
			result.Vector = sb.String()
		}
	}

	done(nil)
	return result
}

// buildGraphContext looks up the named entities, renders their descriptions
// and outgoing relationships, and appends community summaries as related
// topics.
func (a *Assembler) buildGraphContext(ctx context.Context, entityNames []string) (string, error) {
	contextParts := []string{}
	foundIDs := []string{}
	seenIDs := map[string]bool{}

	for _, name := range entityNames {
		entities, err := a.graphStore.FindEntitiesByName(ctx, name, "", maxEntitiesPerName)
		if err != nil {
			return "", fmt.Errorf("failed to find entities for %q: %w", name, err)
		}
		for _, entity := range entities {
			if !seenIDs[entity.ID] {
				seenIDs[entity.ID] = true
				foundIDs = append(foundIDs, entity.ID)
			}
			description := entity.Description
			if description == "" {
				description = "No description"
			}
			contextParts = append(contextParts, fmt.Sprintf("**%s** (%s): %s", entity.Name, entity.Type, description))
		}
	}

	relationshipLines := []string{}
	for _, entityID := range foundIDs {
		outgoing, err := a.graphStore.GetOutgoingRelationships(ctx, entityID, "", maxRelsPerEntity)
		if err != nil {
			return "", fmt.Errorf("failed to get relationships for %s: %w", entityID, err)
		}
		for _, rel := range outgoing {
			relationshipLines = append(relationshipLines, fmt.Sprintf(
				"- %s --[%s]--> %s",
				a.entityName(ctx, rel.SourceID),
				rel.Type,
				a.entityName(ctx, rel.TargetID),
			))
		}
	}
	if len(relationshipLines) > 0 {
		if len(relationshipLines) > maxRelationshipLines {
			relationshipLines = relationshipLines[:maxRelationshipLines]
		}
		contextParts = append(contextParts, "\n**Relationships:**")
		contextParts = append(contextParts, relationshipLines...)
	}

	summaries, err := a.graphStore.GetCommunitySummaries(ctx, nil, fallbackSummaryCount)
	if err != nil {
		logger.Warn("community summary retrieval failed, continuing without it", "err", err)
	} else if len(summaries) > 0 {
		contextParts = append(contextParts, "\n**Related Topics (from knowledge graph):**")
		if len(summaries) > maxCommunities {
			summaries = summaries[:maxCommunities]
		}
		for _, summary := range summaries {
			contextParts = append(contextParts, "- "+util.Truncate(summary, communityTruncateAt, "..."))
		}
	}

	return strings.Join(contextParts, "\n"), nil
}

// entityName resolves an endpoint to a display name, falling back to the raw
// id when the entity is missing or the lookup fails.
func (a *Assembler) entityName(ctx context.Context, entityID string) string {
	entity, err := a.graphStore.GetEntityByID(ctx, entityID)
	if err != nil || entity == nil {
		return entityID
	}
	return entity.Name
}
