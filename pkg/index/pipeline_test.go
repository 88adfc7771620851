package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/extract"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

type fakeAIClient struct {
	ai.GraphAIClient
	completion string
	resolution string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.completion, nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	if f.resolution == "" {
		return errors.New("no resolution configured")
	}
	return ai.UnmarshalFlexible(f.resolution, out)
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type memoryGraph struct {
	store.GraphStore
	store.DocumentStore
	entities      []common.Entity
	relationships []common.Relationship
	communities   []common.Community
	documents     []store.Document
}

func (m *memoryGraph) CreateEntity(ctx context.Context, entity *common.Entity) error {
	if entity.ID == "" {
		entity.ID = "e" + entity.Name
	}
	m.entities = append(m.entities, *entity)
	return nil
}

func (m *memoryGraph) CreateRelationship(ctx context.Context, rel *common.Relationship) error {
	m.relationships = append(m.relationships, *rel)
	return nil
}

func (m *memoryGraph) CreateCommunity(ctx context.Context, community *common.Community) error {
	community.EntityCount = len(community.EntityIDs)
	m.communities = append(m.communities, *community)
	return nil
}

func (m *memoryGraph) CreateDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		doc.ID = "d1"
	}
	m.documents = append(m.documents, *doc)
	return nil
}

func newPipeline(aiClient *fakeAIClient, graph *memoryGraph) *Pipeline {
	return NewPipeline(NewPipelineParams{
		Extractor:  extract.NewExtractor(extract.NewExtractorParams{AIClient: aiClient}),
		Resolver:   extract.NewResolver(extract.NewResolverParams{AIClient: aiClient}),
		GraphStore: graph,
		AIClient:   aiClient,
	})
}

func TestApplyResolutionMergesDuplicates(t *testing.T) {
	entities := []extract.ExtractedEntity{
		{Name: "Kubernetes", Type: "technology", Description: "container orchestrator"},
		{Name: "K8s", Type: "technology", Description: "widely deployed"},
		{Name: "Redis", Type: "technology", Description: "in-memory store"},
	}
	relationships := []extract.ExtractedRelationship{
		{Source: "K8s", Target: "Redis", Type: "uses"},
	}
	mapping := map[string]string{"K8s": "Kubernetes"}

	mergedEntities, rewritten := ApplyResolution(entities, relationships, mapping)

	if len(mergedEntities) != 2 {
		t.Fatalf("expected 2 entities after merge, got %d", len(mergedEntities))
	}
	var kube *extract.ExtractedEntity
	for i := range mergedEntities {
		if mergedEntities[i].Name == "Kubernetes" {
			kube = &mergedEntities[i]
		}
	}
	if kube == nil {
		t.Fatal("canonical entity missing")
	}
	if !strings.Contains(kube.Description, "container orchestrator") || !strings.Contains(kube.Description, "widely deployed") {
		t.Errorf("descriptions not merged: %q", kube.Description)
	}
	if rewritten[0].Source != "Kubernetes" {
		t.Errorf("relationship endpoint not rewritten: %+v", rewritten[0])
	}
}

func TestApplyResolutionCollapsesSameNameAcrossChunks(t *testing.T) {
	entities := []extract.ExtractedEntity{
		{Name: "Redis", Description: "cache"},
		{Name: "redis", Description: "message broker"},
	}

	merged, _ := ApplyResolution(entities, nil, nil)
	if len(merged) != 1 {
		t.Fatalf("expected case-insensitive collapse, got %d entities", len(merged))
	}
}

func TestConsolidateDescriptionsRewritesLongMerges(t *testing.T) {
	aiClient := &fakeAIClient{completion: "An orchestration platform for containers."}
	pipeline := newPipeline(aiClient, &memoryGraph{})

	long := strings.Repeat("manages container workloads across nodes. ", 8)
	entities := []extract.ExtractedEntity{
		{Name: "Kubernetes", Type: "technology", Description: long + "\n" + long},
		{Name: "Redis", Type: "technology", Description: "in-memory store"},
	}

	pipeline.consolidateDescriptions(context.Background(), entities)

	if entities[0].Description != "An orchestration platform for containers." {
		t.Errorf("long merged description not consolidated: %q", entities[0].Description)
	}
	if entities[1].Description != "in-memory store" {
		t.Errorf("short description should be untouched: %q", entities[1].Description)
	}
}

func TestIndexDocumentEndToEnd(t *testing.T) {
	aiClient := &fakeAIClient{
		completion: `{"entities": [{"name": "logging module", "type": "technology", "description": "emits logs"}, {"name": "config module", "type": "technology", "description": "loads settings"}], "relationships": [{"source": "logging module", "target": "config module", "type": "depends_on", "description": ""}]}`,
		resolution: `{"duplicates": {}}`,
	}
	graph := &memoryGraph{}
	pipeline := newPipeline(aiClient, graph)

	doc := &store.Document{
		Title:   "Architecture notes",
		Content: "The logging module depends on the config module for its log level and output settings.",
	}
	stats, err := pipeline.IndexDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Entities != 2 || stats.Relationships != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(graph.documents) != 1 {
		t.Fatalf("document not stored")
	}
	if len(graph.documents[0].Embedding) == 0 {
		t.Error("document stored without embedding")
	}
	if len(graph.entities) != 2 {
		t.Fatalf("expected 2 entities stored, got %d", len(graph.entities))
	}
	for _, entity := range graph.entities {
		if entity.SourceDocumentID != doc.ID {
			t.Errorf("entity missing source document id: %+v", entity)
		}
		if len(entity.Embedding) == 0 {
			t.Errorf("entity stored without embedding: %s", entity.Name)
		}
	}
	if len(graph.relationships) != 1 {
		t.Fatalf("expected 1 relationship stored, got %d", len(graph.relationships))
	}
	rel := graph.relationships[0]
	if rel.SourceID == "" || rel.TargetID == "" {
		t.Errorf("relationship endpoints not resolved to ids: %+v", rel)
	}
}

func TestBuildCommunityRoundTrip(t *testing.T) {
	aiClient := &fakeAIClient{completion: "Modules that make up the infrastructure layer."}
	graph := &memoryGraph{}
	pipeline := newPipeline(aiClient, graph)

	members := []common.Entity{
		{ID: "e1", Name: "logging module"},
		{ID: "e2", Name: "config module"},
		{ID: "e3", Name: "env loader"},
	}
	community, err := pipeline.BuildCommunity(context.Background(), "infrastructure", 0, members, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if community.EntityCount != 3 {
		t.Errorf("expected entity_count 3, got %d", community.EntityCount)
	}
	if graph.communities[0].EntityCount != len(graph.communities[0].EntityIDs) {
		t.Error("stored entity_count does not match member list")
	}
	if community.Summary != "Modules that make up the infrastructure layer." {
		t.Errorf("unexpected summary: %q", community.Summary)
	}
}

func TestSplitTextBoundsChunks(t *testing.T) {
	text := strings.Repeat("This is a sentence about infrastructure. ", 40)
	chunks, err := SplitText(text, "cl100k_base", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			t.Error("empty chunk produced")
		}
	}
}
