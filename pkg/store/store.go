package store

import (
	"context"
	"time"

	"github.com/trellis-ai/trellis/backend/pkg/common"
)

// GraphStore defines the interface for persisting and querying the knowledge
// graph. The backing store is a partitioned document store, not a native
// graph database: entities are partitioned by entity type, relationships by
// source id, communities by level. Point reads that know the partition key
// are cheap; lookups by id alone cross partitions and are the accepted cost
// of not tracking partition keys through a traversal.
type GraphStore interface {
	CreateEntity(ctx context.Context, entity *common.Entity) error
	// GetEntity performs a point read with a known partition key.
	GetEntity(ctx context.Context, id string, entityType string) (*common.Entity, error)
	// GetEntityByID looks an entity up by id alone (cross-partition).
	// Returns nil without error when the entity does not exist.
	GetEntityByID(ctx context.Context, id string) (*common.Entity, error)
	// FindEntitiesByName matches entities by case-insensitive substring on
	// the name. An empty entityType searches across all partitions.
	FindEntitiesByName(ctx context.Context, name string, entityType string, limit int) ([]common.Entity, error)
	GetEntitiesByType(ctx context.Context, entityType string, limit int) ([]common.Entity, error)

	CreateRelationship(ctx context.Context, rel *common.Relationship) error
	// GetOutgoingRelationships returns relationships where the entity is the
	// source. relType filters to a single type; the store-level filter only
	// supports one type per query.
	GetOutgoingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error)
	// GetIncomingRelationships returns relationships where the entity is the
	// target. Cross-partition, since relationships are partitioned by source.
	GetIncomingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error)

	CreateCommunity(ctx context.Context, community *common.Community) error
	GetCommunitiesByLevel(ctx context.Context, level int, limit int) ([]common.Community, error)
	// GetCommunitySummaries returns non-empty community summaries, largest
	// communities first. A nil level spans all levels.
	GetCommunitySummaries(ctx context.Context, level *int, limit int) ([]string, error)
}

// Document is a source text indexed for vector search.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is a ranked document returned by the search service.
type SearchResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	URL         string   `json:"url"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// DocumentSearch defines the interface to the document search service.
// Invalid query syntax yields an empty result list rather than an error.
type DocumentSearch interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
	VectorSearch(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error)
}

// DocumentStore writes documents into the search index.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
}

// HistoryMessage is one persisted conversation turn.
type HistoryMessage struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SessionInfo summarizes one chat session.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// HistoryStore defines the interface to the conversation history store,
// keyed by session id.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, role string, content string, metadata map[string]any) error
	// Read returns up to limit messages for the session, oldest first.
	Read(ctx context.Context, sessionID string, limit int) ([]HistoryMessage, error)
	// Clear deletes the session's messages and reports how many were removed.
	Clear(ctx context.Context, sessionID string) (int, error)
	Sessions(ctx context.Context, limit int) ([]SessionInfo, error)
}
