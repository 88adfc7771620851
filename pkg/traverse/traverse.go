// Package traverse implements bounded breadth-first expansion over the
// knowledge graph. The graph is stored as discrete relationship records with
// no materialized adjacency list, so every frontier expansion is a store
// query.
package traverse

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

type Options struct {
	// DedupeEdges drops duplicate relationship records reached via multiple
	// frontier expansions. Off by default: duplicates reflect edge
	// multiplicity in the stored graph.
	DedupeEdges bool
	// MaxEdgesPerNode bounds the outgoing relationships fetched per entity.
	MaxEdgesPerNode int
	// ResolveConcurrency bounds the parallel entity point lookups after the
	// frontier loop finishes.
	ResolveConcurrency int
}

type Option func(*Options)

func WithDedupeEdges(dedupe bool) Option {
	return func(o *Options) { o.DedupeEdges = dedupe }
}

func WithMaxEdgesPerNode(limit int) Option {
	return func(o *Options) { o.MaxEdgesPerNode = limit }
}

func WithResolveConcurrency(limit int) Option {
	return func(o *Options) { o.ResolveConcurrency = limit }
}

// Engine expands a seed entity into its bounded neighborhood.
type Engine struct {
	store store.GraphStore
}

type NewEngineParams struct {
	Store store.GraphStore
}

func NewEngine(params NewEngineParams) *Engine {
	return &Engine{store: params.Store}
}

// Traverse runs a bounded BFS from startID, following outgoing relationships
// only. relTypes restricts expansion to the given relationship types; when
// exactly one type is requested the filter is pushed down to the store,
// otherwise all edges are fetched and filtered here, since the store filter
// supports a single type per query.
//
// DepthReached is min(maxDepth, resolved-entity-count): a traversal-progress
// heuristic, not a true graph distance. Callers must not reinterpret it as
// eccentricity. A start id that resolves to nothing reports depth 0.
func (e *Engine) Traverse(ctx context.Context, startID string, maxDepth int, relTypes []string, opts ...Option) (*common.TraversalResult, error) {
	options := Options{
		MaxEdgesPerNode:    50,
		ResolveConcurrency: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
	}
	for _, opt := range opts {
		opt(&options)
	}

	done := timing.Observe("graph_traversal")

	storeType := ""
	if len(relTypes) == 1 {
		storeType = relTypes[0]
	}
	typeSet := map[string]bool{}
	for _, t := range relTypes {
		typeSet[t] = true
	}

	visited := map[string]bool{}
	frontier := []string{startID}
	relationships := []common.Relationship{}
	seenEdges := map[string]bool{}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		next := []string{}
		nextSeen := map[string]bool{}

		for _, entityID := range frontier {
			if visited[entityID] {
				continue
			}
			visited[entityID] = true

			edges, err := e.store.GetOutgoingRelationships(ctx, entityID, storeType, options.MaxEdgesPerNode)
			if err != nil {
				done(err)
				return nil, fmt.Errorf("failed to expand entity %s: %w", entityID, err)
			}

			for _, edge := range edges {
				if len(typeSet) > 0 && !typeSet[edge.Type] {
					continue
				}
				if options.DedupeEdges {
					if seenEdges[edge.ID] {
						continue
					}
					seenEdges[edge.ID] = true
				}
				relationships = append(relationships, edge)
				if !visited[edge.TargetID] && !nextSeen[edge.TargetID] {
					nextSeen[edge.TargetID] = true
					next = append(next, edge.TargetID)
				}
			}
		}

		frontier = next
	}

	entities, err := e.resolveEntities(ctx, visited, options.ResolveConcurrency)
	if err != nil {
		done(err)
		return nil, err
	}

	// Depth is capped by the count of entities that actually resolved, so a
	// start id that never existed reports depth 0.
	done(nil)
	return &common.TraversalResult{
		Entities:      entities,
		Relationships: relationships,
		DepthReached:  util.Min(maxDepth, len(entities)),
	}, nil
}

// resolveEntities fetches full records for every visited id. Each lookup is
// cross-partition because the traversal never learns entity types for
// discovered ids; the cost is accepted. Ids that do not resolve are omitted.
func (e *Engine) resolveEntities(ctx context.Context, visited map[string]bool, concurrency int) ([]common.Entity, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	var lock sync.Mutex
	entities := []common.Entity{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for id := range visited {
		entityID := id
		eg.Go(func() error {
			entity, err := e.store.GetEntityByID(gCtx, entityID)
			if err != nil {
				return fmt.Errorf("failed to resolve entity %s: %w", entityID, err)
			}
			if entity == nil {
				return nil
			}
			lock.Lock()
			entities = append(entities, *entity)
			lock.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return entities, nil
}
