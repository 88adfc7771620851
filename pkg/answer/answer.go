// Package answer wraps the completion call that produces the final chat
// response from the assembled context and conversation history.
package answer

import (
	"context"
	"fmt"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/assemble"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

const (
	chatTemperature = 0.7
	chatTopP        = 0.9
	chatMaxTokens   = 1500
	historyWindow   = 10
)

// GenerationError marks a completion failure. Fatal for the current turn:
// the caller shows a generic apology instead of a raw error.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type Generator struct {
	aiClient ai.GraphAIClient
}

type NewGeneratorParams struct {
	AIClient ai.GraphAIClient
}

func NewGenerator(params NewGeneratorParams) *Generator {
	return &Generator{aiClient: params.AIClient}
}

// Generate produces the answer for one chat turn. The system message is the
// base persona prompt augmented with whichever context blocks are non-empty;
// empty blocks are omitted entirely rather than inserted as empty sections.
func (g *Generator) Generate(ctx context.Context, question string, assembled *assemble.Context, history []store.HistoryMessage) (string, error) {
	done := timing.Observe("generate_answer")

	system := ai.ChatSystemPrompt
	if assembled.Graph != "" {
		system += "\n\n## Knowledge Graph Context:\n" + assembled.Graph
	}
	if assembled.Vector != "" {
		system += "\n\n## Document Context:\n" + assembled.Vector
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]ai.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, ai.ChatMessage{Role: msg.Role, Message: msg.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Message: question})

	response, err := g.aiClient.GenerateChat(ctx, messages,
		ai.WithSystemPrompts(system),
		ai.WithTemperature(chatTemperature),
		ai.WithTopP(chatTopP),
		ai.WithMaxTokens(chatMaxTokens),
	)
	if err != nil {
		done(err)
		return "", &GenerationError{Err: err}
	}

	done(nil)
	return response, nil
}
