package analyze

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
)

type fakeAIClient struct {
	ai.GraphAIClient
	response string
	err      error
	calls    int
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestClassifyStrategy(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     Strategy
	}{
		{
			name:     "graph margin",
			question: "List all the modules related to logging and what depends on them",
			want:     StrategyGraph,
		},
		{
			name:     "vector margin",
			question: "Explain what is the syntax, with an example",
			want:     StrategyVector,
		},
		{
			name:     "single point lead stays hybrid",
			question: "What is related here?",
			want:     StrategyHybrid,
		},
		{
			name:     "no keywords",
			question: "Tell me about the project",
			want:     StrategyHybrid,
		},
		{
			name:     "end to end graph question",
			question: "How does the logging module depend on the config module?",
			want:     StrategyGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStrategy(tt.question); got != tt.want {
				t.Errorf("ClassifyStrategy(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestClassifyStrategyMarginRule(t *testing.T) {
	// graph_score=2, vector_score=1: a one point lead is not enough.
	question := "What is connected to the parts related here?"
	if got := ClassifyStrategy(question); got != StrategyHybrid {
		t.Errorf("expected hybrid at 2v1, got %q", got)
	}

	// graph_score=3, vector_score=1 clears the margin.
	question = "What is connected to the hierarchy of parts related here?"
	if got := ClassifyStrategy(question); got != StrategyGraph {
		t.Errorf("expected graph at 3v1, got %q", got)
	}
}

func TestExtractEntities(t *testing.T) {
	fake := &fakeAIClient{response: "Kubernetes, Prometheus , Grafana"}
	analyzer := NewAnalyzer(NewAnalyzerParams{AIClient: fake})

	got := analyzer.ExtractEntities(context.Background(), "How do Kubernetes, Prometheus and Grafana interact?")
	want := []string{"Kubernetes", "Prometheus", "Grafana"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractEntitiesNoneSentinel(t *testing.T) {
	fake := &fakeAIClient{response: "none"}
	analyzer := NewAnalyzer(NewAnalyzerParams{AIClient: fake})

	got := analyzer.ExtractEntities(context.Background(), "hmm?")
	if len(got) != 0 {
		t.Errorf("expected empty list for NONE sentinel, got %v", got)
	}
}

func TestExtractEntitiesFallback(t *testing.T) {
	fake := &fakeAIClient{err: errors.New("model unavailable")}
	analyzer := NewAnalyzer(NewAnalyzerParams{AIClient: fake})

	got := analyzer.ExtractEntities(context.Background(), "What does Apache Kafka use? Why does Redis matter?")
	want := []string{"Apache Kafka", "Redis"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallback got %v, want %v", got, want)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 model call, got %d", fake.calls)
	}
}

func TestFallbackCapsAtFive(t *testing.T) {
	got := fallbackEntityExtraction("Alpha Beta Gamma Delta Epsilon Zeta Eta")
	if len(got) != 1 {
		// A run of capitalized words matches as one phrase.
		t.Fatalf("expected one phrase, got %v", got)
	}

	got = fallbackEntityExtraction("Alpha? Beta? Gamma? Delta? Epsilon? Zeta? Eta?")
	if len(got) != 5 {
		t.Errorf("expected cap of 5, got %v", got)
	}
}
