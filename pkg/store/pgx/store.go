package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements store.GraphStore, store.DocumentSearch and
// store.HistoryStore on PostgreSQL with pgvector for similarity search. The
// AI client supplies query embeddings for vector search.
type Store struct {
	conn     pgxIConn
	aiClient ai.GraphAIClient
}

type NewStoreParams struct {
	Conn     pgxIConn
	AIClient ai.GraphAIClient
}

func NewStore(params NewStoreParams) *Store {
	return &Store{
		conn:     params.Conn,
		aiClient: params.AIClient,
	}
}
