package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

const defaultDimensions = 1536

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
//
// The input is provided as a byte slice and converted to a string before
// being sent. Empty input returns a zero vector of the configured dimension
// instead of calling the API.
func (c *GraphOpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("embedding client is not configured")
	}

	dim := int(util.GetEnvNumeric("AI_EMBED_DIM", defaultDimensions))
	text := strings.TrimSpace(string(input))
	if text == "" {
		return make([]float32, dim), nil
	}

	start := time.Now()
	res, err := c.EmbeddingClient.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(res.Usage.PromptTokens),
		TotalTokens: int(res.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(res.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response from model")
	}

	out := make([]float32, 0, len(res.Data[0].Embedding))
	for _, v := range res.Data[0].Embedding {
		out = append(out, float32(v))
	}
	return out, nil
}
