// Package extract populates the knowledge graph from source text: an
// Extractor that turns a document chunk into candidate entities and
// relationships, and a Resolver that identifies duplicates across a batch.
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

const (
	// minTextLength is the floor below which extraction returns an empty
	// result without a model call.
	minTextLength = 50
	// maxTextLength is the character budget; longer input is truncated with
	// a marker rather than rejected.
	maxTextLength   = 8000
	truncationNote  = "\n\n[Text truncated...]"
	parseErrorLabel = "JSON parse error"
	maxExtractTries = 3
)

// ExtractedEntity is a candidate graph node from one chunk.
type ExtractedEntity struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	SourceDocumentID string `json:"source_document_id,omitempty"`
}

// ExtractedRelationship references entities by name; ids are assigned when
// the graph is written.
type ExtractedRelationship struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	SourceDocumentID string `json:"source_document_id,omitempty"`
}

// Result is the extraction output for one chunk. Error is set to a short
// label when the model returned unparseable JSON; the result is then empty
// but the failure is non-fatal.
type Result struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
	Error         string                  `json:"error,omitempty"`
}

// ExtractionError marks a fatal extraction failure, e.g. the model being
// unreachable. Parse failures degrade instead of raising this.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("entity extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Extractor struct {
	aiClient ai.GraphAIClient
}

type NewExtractorParams struct {
	AIClient ai.GraphAIClient
}

func NewExtractor(params NewExtractorParams) *Extractor {
	return &Extractor{aiClient: params.AIClient}
}

// Extract pulls entities and relationships out of text. Input under 50
// characters after trimming returns an empty result without invoking the
// model; input over the character budget is truncated, never rejected. When
// sourceDocumentID is set, every extracted record is stamped with it.
func (e *Extractor) Extract(ctx context.Context, text string, sourceDocumentID string) (*Result, error) {
	if len(strings.TrimSpace(text)) < minTextLength {
		logger.Warn("text too short for entity extraction", "length", len(text))
		return &Result{Entities: []ExtractedEntity{}, Relationships: []ExtractedRelationship{}}, nil
	}

	if len(text) > maxTextLength {
		text = util.Truncate(text, maxTextLength, truncationNote)
	}

	done := timing.Observe("extract_graph")

	prompt := fmt.Sprintf(ai.ExtractGraphPrompt, text)
	response, err := util.RetryWithContext(ctx, maxExtractTries, func(ctx context.Context) (string, error) {
		return e.aiClient.GenerateCompletion(ctx, prompt,
			ai.WithTemperature(0.0),
			ai.WithMaxTokens(2000),
		)
	})
	if err != nil {
		done(err)
		return nil, &ExtractionError{Err: err}
	}

	result := &Result{}
	if err := ai.UnmarshalFlexible(response, result); err != nil {
		logger.Error("failed to parse extraction response", "err", err)
		done(err)
		return &Result{
			Entities:      []ExtractedEntity{},
			Relationships: []ExtractedRelationship{},
			Error:         parseErrorLabel,
		}, nil
	}
	if result.Entities == nil {
		result.Entities = []ExtractedEntity{}
	}
	if result.Relationships == nil {
		result.Relationships = []ExtractedRelationship{}
	}

	if sourceDocumentID != "" {
		for i := range result.Entities {
			result.Entities[i].SourceDocumentID = sourceDocumentID
		}
		for i := range result.Relationships {
			result.Relationships[i].SourceDocumentID = sourceDocumentID
		}
	}

	logger.Info("extracted graph records",
		"entities", len(result.Entities),
		"relationships", len(result.Relationships),
	)
	done(nil)
	return result, nil
}

// GenerateDescription consolidates context snippets into a short entity
// description. Failures degrade to a generic placeholder.
func (e *Extractor) GenerateDescription(ctx context.Context, entityName string, entityType string, contextSnippets []string) string {
	if len(contextSnippets) > 5 {
		contextSnippets = contextSnippets[:5]
	}

	prompt := fmt.Sprintf(ai.EntityDescriptionPrompt, entityName, entityType, strings.Join(contextSnippets, "\n---\n"))
	response, err := e.aiClient.GenerateCompletion(ctx, prompt,
		ai.WithTemperature(0.3),
		ai.WithMaxTokens(200),
	)
	if err != nil {
		logger.Error("description generation failed", "entity", entityName, "err", err)
		return fmt.Sprintf("A %s mentioned in the documents.", entityType)
	}
	return strings.TrimSpace(response)
}
