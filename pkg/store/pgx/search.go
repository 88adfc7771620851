package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/trellis-ai/trellis/backend/pkg/store"
)

func collectSearchResults(rows pgx.Rows) ([]store.SearchResult, error) {
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var result store.SearchResult
		err := rows.Scan(&result.ID, &result.Title, &result.Content, &result.URL, &result.Score)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Search embeds the query and runs a similarity search over the document
// index. A blank query returns an empty result list rather than an error.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []store.SearchResult{}, nil
	}

	embedding, err := s.aiClient.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed search query: %w", err)
	}
	return s.VectorSearch(ctx, embedding, topK)
}

func (s *Store) VectorSearch(ctx context.Context, embedding []float32, topK int) ([]store.SearchResult, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, title, content, url, 1 - (embedding <=> $1) AS score
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1 LIMIT $2`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return collectSearchResults(rows)
}
