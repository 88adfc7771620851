package assemble

import (
	"context"
	"strings"
	"testing"

	"github.com/trellis-ai/trellis/backend/pkg/analyze"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

type fakeGraphStore struct {
	store.GraphStore
	entities  map[string]common.Entity
	edges     map[string][]common.Relationship
	summaries []string
	calls     int
}

func (f *fakeGraphStore) FindEntitiesByName(ctx context.Context, name string, entityType string, limit int) ([]common.Entity, error) {
	f.calls++
	matches := []common.Entity{}
	needle := strings.ToLower(name)
	for _, entity := range f.entities {
		if strings.Contains(strings.ToLower(entity.Name), needle) {
			matches = append(matches, entity)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

func (f *fakeGraphStore) GetEntityByID(ctx context.Context, id string) (*common.Entity, error) {
	f.calls++
	entity, ok := f.entities[id]
	if !ok {
		return nil, nil
	}
	return &entity, nil
}

func (f *fakeGraphStore) GetOutgoingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error) {
	f.calls++
	return f.edges[entityID], nil
}

func (f *fakeGraphStore) GetCommunitySummaries(ctx context.Context, level *int, limit int) ([]string, error) {
	f.calls++
	if len(f.summaries) > limit {
		return f.summaries[:limit], nil
	}
	return f.summaries, nil
}

type fakeSearch struct {
	results []store.SearchResult
	calls   int
}

func (f *fakeSearch) Search(ctx context.Context, query string, topK int) ([]store.SearchResult, error) {
	f.calls++
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func (f *fakeSearch) VectorSearch(ctx context.Context, embedding []float32, topK int) ([]store.SearchResult, error) {
	f.calls++
	return f.results, nil
}

func newFixtureGraph() *fakeGraphStore {
	return &fakeGraphStore{
		entities: map[string]common.Entity{
			"e1": {ID: "e1", Name: "logging module", Type: "module", Description: "emits structured logs"},
			"e2": {ID: "e2", Name: "config module", Type: "module", Description: "loads settings"},
		},
		edges: map[string][]common.Relationship{
			"e1": {{ID: "r1", SourceID: "e1", TargetID: "e2", Type: "depends_on"}},
		},
		summaries: []string{"Infrastructure modules and their wiring."},
	}
}

func TestBuildVectorStrategySkipsGraph(t *testing.T) {
	graph := newFixtureGraph()
	search := &fakeSearch{results: []store.SearchResult{
		{Title: "Logging guide", Content: "how logging works", URL: "https://docs/logging", Score: 0.9},
	}}
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: search})

	result := assembler.Build(context.Background(), analyze.StrategyVector, []string{"logging module"}, "what is logging?")

	if graph.calls != 0 {
		t.Errorf("vector strategy issued %d graph store calls, want 0", graph.calls)
	}
	if search.calls != 1 {
		t.Errorf("expected 1 search call, got %d", search.calls)
	}
	if result.GraphUsed() {
		t.Error("graph context should be unused for vector strategy")
	}
	if !result.VectorUsed() {
		t.Error("vector context should be used")
	}
	if !strings.Contains(result.Vector, "### [1] Logging guide") {
		t.Errorf("missing numbered document section:\n%s", result.Vector)
	}
}

func TestBuildGraphStrategyWithEntities(t *testing.T) {
	graph := newFixtureGraph()
	search := &fakeSearch{}
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: search})

	result := assembler.Build(context.Background(), analyze.StrategyGraph,
		[]string{"logging module", "config module"}, "How does the logging module depend on the config module?")

	if search.calls != 0 {
		t.Errorf("graph strategy issued %d search calls, want 0", search.calls)
	}
	if !result.GraphUsed() {
		t.Fatal("expected graph context")
	}
	if !strings.Contains(result.Graph, "logging module --[depends_on]--> config module") {
		t.Errorf("missing relationship line:\n%s", result.Graph)
	}
	if !strings.Contains(result.Graph, "**Related Topics (from knowledge graph):**") {
		t.Errorf("missing supplementary community summaries:\n%s", result.Graph)
	}
}

func TestBuildGraphStrategyNoEntitiesFallsBackToSummaries(t *testing.T) {
	graph := newFixtureGraph()
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: &fakeSearch{}})

	result := assembler.Build(context.Background(), analyze.StrategyGraph, nil, "what are the big themes?")

	if !strings.Contains(result.Graph, "## Knowledge Graph Summaries:") {
		t.Errorf("expected community fallback block:\n%s", result.Graph)
	}
	if !strings.Contains(result.Graph, "- Infrastructure modules and their wiring.") {
		t.Errorf("expected summary line:\n%s", result.Graph)
	}
}

func TestBuildGraphStrategyNothingFoundReportsUnused(t *testing.T) {
	graph := &fakeGraphStore{entities: map[string]common.Entity{}}
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: &fakeSearch{}})

	result := assembler.Build(context.Background(), analyze.StrategyGraph, nil, "anything?")

	if result.GraphUsed() {
		t.Error("graph context should be reported unused when nothing was found")
	}
}

func TestBuildRelationshipLineCap(t *testing.T) {
	graph := newFixtureGraph()
	edges := []common.Relationship{}
	for i := 0; i < 25; i++ {
		edges = append(edges, common.Relationship{
			ID: "r", SourceID: "e1", TargetID: "e2", Type: "depends_on",
		})
	}
	graph.edges["e1"] = edges[:10]
	graph.edges["e2"] = edges[:10]
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: &fakeSearch{}})

	result := assembler.Build(context.Background(), analyze.StrategyGraph,
		[]string{"logging module", "config module"}, "question")

	lines := 0
	for _, line := range strings.Split(result.Graph, "\n") {
		if strings.HasPrefix(line, "- ") && strings.Contains(line, "--[") {
			lines++
		}
	}
	if lines > 15 {
		t.Errorf("expected at most 15 relationship lines, got %d", lines)
	}
}

func TestBuildHybridCombinesBlocks(t *testing.T) {
	graph := newFixtureGraph()
	search := &fakeSearch{results: []store.SearchResult{
		{Title: "Doc", Content: strings.Repeat("x", 600), Score: 0.5},
		{Title: "Doc2", Content: "short", Score: 0.4},
		{Title: "Doc3", Content: "short", Score: 0.3},
		{Title: "Doc4", Content: "short", Score: 0.2},
	}}
	assembler := NewAssembler(NewAssemblerParams{GraphStore: graph, Search: search})

	result := assembler.Build(context.Background(), analyze.StrategyHybrid,
		[]string{"logging module"}, "how is logging wired?")

	if !result.GraphUsed() || !result.VectorUsed() {
		t.Fatal("hybrid should produce both blocks when content exists")
	}
	if len(result.Sources) != 4 {
		t.Errorf("expected 4 sources, got %d", len(result.Sources))
	}
	// Excerpts are capped at 500 characters.
	if strings.Contains(result.Vector, strings.Repeat("x", 501)) {
		t.Error("document excerpt was not truncated")
	}
}
