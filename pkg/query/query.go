// Package query orchestrates one chat turn: analyze the question, assemble
// grounding context, generate the answer, and persist the exchange.
package query

import (
	"context"
	"time"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/analyze"
	"github.com/trellis-ai/trellis/backend/pkg/answer"
	"github.com/trellis-ai/trellis/backend/pkg/assemble"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

const (
	maxResponseSources = 3
	historyReadLimit   = 10
)

// ChatResult is the answer for one turn plus provenance metadata. The
// *_ContextUsed flags report whether each block actually carried content,
// not which strategy was chosen.
type ChatResult struct {
	Response          string            `json:"response"`
	Strategy          analyze.Strategy  `json:"strategy"`
	EntitiesFound     []string          `json:"entities_found"`
	Sources           []assemble.Source `json:"sources"`
	GraphContextUsed  bool              `json:"graph_context_used"`
	VectorContextUsed bool              `json:"vector_context_used"`
}

type Orchestrator struct {
	analyzer  *analyze.Analyzer
	assembler *assemble.Assembler
	generator *answer.Generator
	history   store.HistoryStore
	timeout   time.Duration
}

type NewOrchestratorParams struct {
	Analyzer  *analyze.Analyzer
	Assembler *assemble.Assembler
	Generator *answer.Generator
	History   store.HistoryStore
}

func NewOrchestrator(params NewOrchestratorParams) *Orchestrator {
	timeout := time.Duration(util.GetEnvNumeric("QUERY_TIMEOUT_SECONDS", 60)) * time.Second
	return &Orchestrator{
		analyzer:  params.Analyzer,
		assembler: params.Assembler,
		generator: params.Generator,
		history:   params.History,
		timeout:   timeout,
	}
}

// Chat answers the question within a per-turn deadline. Context gathering
// degrades on failure; only answer generation itself is fatal for the turn.
func (o *Orchestrator) Chat(ctx context.Context, question string, sessionID string) (*ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := timing.Observe("chat_turn")

	entities := o.analyzer.ExtractEntities(ctx, question)
	strategy := analyze.ClassifyStrategy(question)
	logger.Info("answering chat turn",
		"session_id", sessionID,
		"strategy", strategy,
		"entities", entities,
	)

	assembled := o.assembler.Build(ctx, strategy, entities, question)

	history, err := o.history.Read(ctx, sessionID, historyReadLimit)
	if err != nil {
		logger.Warn("failed to read chat history, answering without it", "err", err)
		history = nil
	}

	response, err := o.generator.Generate(ctx, question, assembled, history)
	if err != nil {
		done(err)
		return nil, err
	}

	o.persistTurn(ctx, sessionID, question, response, strategy, entities, len(assembled.Sources))

	sources := assembled.Sources
	if len(sources) > maxResponseSources {
		sources = sources[:maxResponseSources]
	}

	done(nil)
	return &ChatResult{
		Response:          response,
		Strategy:          strategy,
		EntitiesFound:     entities,
		Sources:           sources,
		GraphContextUsed:  assembled.GraphUsed(),
		VectorContextUsed: assembled.VectorUsed(),
	}, nil
}

// persistTurn appends both sides of the exchange. History failures are
// logged and swallowed: losing a transcript line must not fail a turn that
// already produced an answer.
func (o *Orchestrator) persistTurn(ctx context.Context, sessionID, question, response string, strategy analyze.Strategy, entities []string, sourceCount int) {
	if err := o.history.Append(ctx, sessionID, "user", question, nil); err != nil {
		logger.Warn("failed to persist user message", "session_id", sessionID, "err", err)
	}
	err := o.history.Append(ctx, sessionID, "assistant", response, map[string]any{
		"strategy":     strategy,
		"entities":     entities,
		"source_count": sourceCount,
	})
	if err != nil {
		logger.Warn("failed to persist assistant message", "session_id", sessionID, "err", err)
	}
}
