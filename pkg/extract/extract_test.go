package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
)

type fakeAIClient struct {
	ai.GraphAIClient
	response string
	err      error
	calls    int

	gotPrompt string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.calls++
	f.gotPrompt = prompt
	return f.response, f.err
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	f.calls++
	f.gotPrompt = prompt
	if f.err != nil {
		return f.err
	}
	return ai.UnmarshalFlexible(f.response, out)
}

const sampleText = "The logging module depends on the config module for its log level and output settings."

func TestExtractShortTextSkipsModel(t *testing.T) {
	fake := &fakeAIClient{}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	result, err := extractor.Extract(context.Background(), "too short", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("expected no model calls for short text, got %d", fake.calls)
	}
	if len(result.Entities) != 0 || len(result.Relationships) != 0 || result.Error != "" {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestExtractParsesFencedResponse(t *testing.T) {
	fake := &fakeAIClient{response: "```json\n{\"entities\": [{\"name\": \"config module\", \"type\": \"technology\", \"description\": \"settings\"}], \"relationships\": []}\n```"}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	result, err := extractor.Extract(context.Background(), sampleText, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	if result.Entities[0].SourceDocumentID != "doc-1" {
		t.Errorf("entity not stamped with source document id: %+v", result.Entities[0])
	}
}

func TestExtractStampsRelationships(t *testing.T) {
	fake := &fakeAIClient{response: `{"entities": [], "relationships": [{"source": "a", "target": "b", "type": "uses", "description": ""}]}`}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	result, err := extractor.Extract(context.Background(), sampleText, "doc-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Relationships[0].SourceDocumentID != "doc-2" {
		t.Errorf("relationship not stamped: %+v", result.Relationships[0])
	}
}

func TestExtractMalformedJSONDegrades(t *testing.T) {
	fake := &fakeAIClient{response: "I could not find anything useful."}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	result, err := extractor.Extract(context.Background(), sampleText, "")
	if err != nil {
		t.Fatalf("parse failures must not be fatal: %v", err)
	}
	if result.Error != "JSON parse error" {
		t.Errorf("expected parse error label, got %q", result.Error)
	}
	if len(result.Entities) != 0 || len(result.Relationships) != 0 {
		t.Errorf("expected empty result on parse failure, got %+v", result)
	}
}

func TestExtractModelFailureIsFatal(t *testing.T) {
	fake := &fakeAIClient{err: errors.New("connection refused")}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	_, err := extractor.Extract(context.Background(), sampleText, "")
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractTruncatesLongInput(t *testing.T) {
	fake := &fakeAIClient{response: `{"entities": [], "relationships": []}`}
	extractor := NewExtractor(NewExtractorParams{AIClient: fake})

	long := strings.Repeat("a", 9000)
	_, err := extractor.Extract(context.Background(), long, "")
	if err != nil {
		t.Fatalf("oversized input must degrade, not fail: %v", err)
	}
	if !strings.Contains(fake.gotPrompt, "[Text truncated...]") {
		t.Error("expected truncation marker in prompt")
	}
	if strings.Contains(fake.gotPrompt, strings.Repeat("a", 8001)) {
		t.Error("input was not truncated to the character budget")
	}
}

func TestResolveShortCircuits(t *testing.T) {
	fake := &fakeAIClient{}
	resolver := NewResolver(NewResolverParams{AIClient: fake})

	mapping := resolver.Resolve(context.Background(), []ExtractedEntity{{Name: "only one"}})
	if len(mapping) != 0 {
		t.Errorf("expected empty mapping, got %v", mapping)
	}
	if fake.calls != 0 {
		t.Errorf("expected no model calls for a single entity, got %d", fake.calls)
	}
}

func TestResolveReturnsMapping(t *testing.T) {
	fake := &fakeAIClient{response: `{"duplicates": {"K8s": "Kubernetes"}}`}
	resolver := NewResolver(NewResolverParams{AIClient: fake})

	mapping := resolver.Resolve(context.Background(), []ExtractedEntity{
		{Name: "Kubernetes", Type: "technology"},
		{Name: "K8s", Type: "technology"},
	})
	if mapping["K8s"] != "Kubernetes" {
		t.Errorf("expected K8s -> Kubernetes, got %v", mapping)
	}
}

func TestResolveFailureDegrades(t *testing.T) {
	fake := &fakeAIClient{err: errors.New("model unavailable")}
	resolver := NewResolver(NewResolverParams{AIClient: fake})

	mapping := resolver.Resolve(context.Background(), []ExtractedEntity{
		{Name: "a"}, {Name: "b"},
	})
	if len(mapping) != 0 {
		t.Errorf("expected empty mapping on failure, got %v", mapping)
	}
}
