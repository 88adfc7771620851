package pgx

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

func (s *Store) CreateDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate document id: %w", err)
		}
		doc.ID = id
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.Content = util.SanitizePostgresText(doc.Content)

	var embedding *pgvector.Vector
	if len(doc.Embedding) > 0 {
		vec := pgvector.NewVector(doc.Embedding)
		embedding = &vec
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO documents (id, title, content, url, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			embedding = EXCLUDED.embedding`,
		doc.ID, doc.Title, doc.Content, doc.URL, embedding, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}
