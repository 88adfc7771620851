package query

import (
	"context"
	"strings"
	"testing"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/analyze"
	"github.com/trellis-ai/trellis/backend/pkg/answer"
	"github.com/trellis-ai/trellis/backend/pkg/assemble"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

type fakeAIClient struct {
	ai.GraphAIClient
	completion string

	gotSystem string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.completion, nil
}

func (f *fakeAIClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	options := ai.GenerateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if len(options.SystemPrompts) > 0 {
		f.gotSystem = options.SystemPrompts[0]
	}
	return "The logging module reads its settings through the config module.", nil
}

type fakeGraphStore struct {
	store.GraphStore
	entities map[string]common.Entity
	edges    map[string][]common.Relationship
}

func (f *fakeGraphStore) FindEntitiesByName(ctx context.Context, name string, entityType string, limit int) ([]common.Entity, error) {
	matches := []common.Entity{}
	for _, entity := range f.entities {
		if strings.Contains(entity.NameLower, strings.ToLower(name)) {
			matches = append(matches, entity)
		}
	}
	return matches, nil
}

func (f *fakeGraphStore) GetEntityByID(ctx context.Context, id string) (*common.Entity, error) {
	entity, ok := f.entities[id]
	if !ok {
		return nil, nil
	}
	return &entity, nil
}

func (f *fakeGraphStore) GetOutgoingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error) {
	return f.edges[entityID], nil
}

func (f *fakeGraphStore) GetCommunitySummaries(ctx context.Context, level *int, limit int) ([]string, error) {
	return nil, nil
}

type fakeSearch struct{}

func (f *fakeSearch) Search(ctx context.Context, query string, topK int) ([]store.SearchResult, error) {
	return nil, nil
}

func (f *fakeSearch) VectorSearch(ctx context.Context, embedding []float32, topK int) ([]store.SearchResult, error) {
	return nil, nil
}

type memoryHistory struct {
	messages []store.HistoryMessage
}

func (m *memoryHistory) Append(ctx context.Context, sessionID, role, content string, metadata map[string]any) error {
	m.messages = append(m.messages, store.HistoryMessage{
		SessionID: sessionID, Role: role, Content: content, Metadata: metadata,
	})
	return nil
}

func (m *memoryHistory) Read(ctx context.Context, sessionID string, limit int) ([]store.HistoryMessage, error) {
	return m.messages, nil
}

func (m *memoryHistory) Clear(ctx context.Context, sessionID string) (int, error) {
	n := len(m.messages)
	m.messages = nil
	return n, nil
}

func (m *memoryHistory) Sessions(ctx context.Context, limit int) ([]store.SessionInfo, error) {
	return nil, nil
}

func TestChatEndToEndGraphScenario(t *testing.T) {
	aiClient := &fakeAIClient{completion: "logging module, config module"}
	graph := &fakeGraphStore{
		entities: map[string]common.Entity{
			"e1": {ID: "e1", Name: "logging module", NameLower: "logging module", Type: "module", Description: "emits structured logs"},
			"e2": {ID: "e2", Name: "config module", NameLower: "config module", Type: "module", Description: "loads settings"},
		},
		edges: map[string][]common.Relationship{
			"e1": {{ID: "r1", SourceID: "e1", TargetID: "e2", Type: "depends_on"}},
		},
	}
	history := &memoryHistory{}

	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Analyzer:  analyze.NewAnalyzer(analyze.NewAnalyzerParams{AIClient: aiClient}),
		Assembler: assemble.NewAssembler(assemble.NewAssemblerParams{GraphStore: graph, Search: &fakeSearch{}}),
		Generator: answer.NewGenerator(answer.NewGeneratorParams{AIClient: aiClient}),
		History:   history,
	})

	result, err := orchestrator.Chat(context.Background(), "How does the logging module depend on the config module?", "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Strategy != analyze.StrategyGraph {
		t.Errorf("expected graph strategy, got %q", result.Strategy)
	}
	if len(result.EntitiesFound) != 2 {
		t.Errorf("expected 2 entities, got %v", result.EntitiesFound)
	}
	if !result.GraphContextUsed {
		t.Error("expected graph context to be used")
	}
	if result.VectorContextUsed {
		t.Error("vector context should be unused for graph strategy")
	}
	if !strings.Contains(aiClient.gotSystem, "logging module --[depends_on]--> config module") {
		t.Errorf("relationship line missing from system prompt:\n%s", aiClient.gotSystem)
	}

	if len(history.messages) != 2 {
		t.Fatalf("expected both turn sides persisted, got %d", len(history.messages))
	}
	assistant := history.messages[1]
	if assistant.Role != "assistant" {
		t.Errorf("expected assistant message second, got %q", assistant.Role)
	}
	if assistant.Metadata["strategy"] != analyze.StrategyGraph {
		t.Errorf("expected strategy metadata, got %v", assistant.Metadata)
	}
	if assistant.Metadata["source_count"] != 0 {
		t.Errorf("expected zero sources, got %v", assistant.Metadata["source_count"])
	}
}
