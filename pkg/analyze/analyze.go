// Package analyze turns a user question into retrieval inputs: the entity
// mentions to seed graph lookups with and the retrieval strategy to run.
package analyze

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// Strategy selects which retrieval paths the assembler runs.
type Strategy string

const (
	StrategyGraph  Strategy = "graph"
	StrategyVector Strategy = "vector"
	StrategyHybrid Strategy = "hybrid"
)

var graphKeywords = []string{
	"related", "relationship", "connected", "connection",
	"depend", "depend on", "dependency", "uses", "used by",
	"hierarchy", "parent", "child", "belongs to",
	"author", "created by", "works for",
	"all the", "list all", "what are the",
}

var vectorKeywords = []string{
	"what is", "define", "explain", "describe",
	"how to", "how do i", "steps to",
	"example", "code", "syntax",
	"specific", "details about",
}

// ClassifyStrategy scores the question against the two keyword lists by
// substring containment. A side needs a margin of more than one over the
// other to win outright; boundary scores fall back to hybrid.
func ClassifyStrategy(question string) Strategy {
	questionLower := strings.ToLower(question)

	graphScore := 0
	for _, kw := range graphKeywords {
		if strings.Contains(questionLower, kw) {
			graphScore++
		}
	}
	vectorScore := 0
	for _, kw := range vectorKeywords {
		if strings.Contains(questionLower, kw) {
			vectorScore++
		}
	}

	var strategy Strategy
	switch {
	case graphScore > vectorScore+1:
		strategy = StrategyGraph
	case vectorScore > graphScore+1:
		strategy = StrategyVector
	default:
		strategy = StrategyHybrid
	}

	logger.Debug("classified query strategy",
		"strategy", strategy,
		"graph_score", graphScore,
		"vector_score", vectorScore,
	)
	return strategy
}

var titleCasePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var fallbackStopWords = map[string]bool{
	"What": true, "How": true, "Why": true, "When": true,
	"Where": true, "Who": true, "The": true, "This": true, "That": true,
}

// fallbackEntityExtraction scans for capitalized word runs. A crude degrade
// path for when the model is unreachable, not a real extractor.
func fallbackEntityExtraction(text string) []string {
	matches := titleCasePattern.FindAllString(text, -1)

	entities := []string{}
	for _, match := range matches {
		if fallbackStopWords[match] {
			continue
		}
		entities = append(entities, match)
		if len(entities) == 5 {
			break
		}
	}
	return entities
}

// Analyzer extracts entity mentions from questions.
type Analyzer struct {
	aiClient ai.GraphAIClient
}

type NewAnalyzerParams struct {
	AIClient ai.GraphAIClient
}

func NewAnalyzer(params NewAnalyzerParams) *Analyzer {
	return &Analyzer{aiClient: params.AIClient}
}

// ExtractEntities asks the model for a comma-separated entity list. The
// sentinel "NONE" means no clear entities. Model failures degrade to the
// capitalized-word fallback instead of failing the turn.
func (a *Analyzer) ExtractEntities(ctx context.Context, question string) []string {
	prompt := fmt.Sprintf(ai.QueryEntityExtractionPrompt, question)

	response, err := a.aiClient.GenerateCompletion(ctx, prompt,
		ai.WithTemperature(0.1),
		ai.WithMaxTokens(200),
	)
	if err != nil {
		logger.Warn("entity extraction failed, using fallback", "err", err)
		return fallbackEntityExtraction(question)
	}

	response = strings.TrimSpace(response)
	if strings.EqualFold(response, "NONE") {
		return []string{}
	}

	entities := []string{}
	for _, part := range strings.Split(response, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			entities = append(entities, part)
		}
	}

	logger.Debug("extracted entities from question", "entities", entities)
	return entities
}
