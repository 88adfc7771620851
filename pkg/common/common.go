package common

import "time"

// Entity represents a node in the knowledge graph. An entity can be a person,
// organization, technology, concept, or any other named thing. NameLower holds
// the case-folded name used for substring matching; it is not a normalized key,
// so spelling variants survive as separate entities until deduplication merges
// them.
//
// Type doubles as the graph store's partition key and is immutable after
// creation: changing it would require a cross-partition move the store does
// not support.
type Entity struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	NameLower        string    `json:"name_lower"`
	Type             string    `json:"entity_type"`
	Description      string    `json:"description"`
	Embedding        []float32 `json:"embedding,omitempty"`
	SourceDocumentID string    `json:"source_document_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Relationship represents a directed, typed edge between two entities.
// SourceID and TargetID reference entity ids without ownership: entities may
// be deleted while dangling relationships remain. Weight is advisory, in
// [0.0, 1.0], and does not influence traversal ordering.
//
// A relationship is stored once, outgoing from SourceID. Incoming lookups go
// through a separate cross-partition query path.
type Relationship struct {
	ID               string    `json:"id"`
	SourceID         string    `json:"source_id"`
	TargetID         string    `json:"target_id"`
	Type             string    `json:"relationship_type"`
	Weight           float64   `json:"weight"`
	Description      string    `json:"description"`
	SourceDocumentID string    `json:"source_document_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Community is a pre-computed cluster of related entities with a synthesized
// summary, used for global (non-entity-specific) context. Level 0 is the most
// granular clustering; higher levels are coarser. EntityCount caches
// len(EntityIDs) and must equal it at write time.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Level       int       `json:"level"`
	Summary     string    `json:"summary"`
	EntityIDs   []string  `json:"entity_ids"`
	KeyEntities []string  `json:"key_entities"`
	EntityCount int       `json:"entity_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TraversalResult holds everything found by a bounded graph traversal.
// Entities is deduplicated by id. Relationships may contain duplicates when
// the same edge is reachable via multiple frontier expansions, unless edge
// deduplication was requested. DepthReached is min(maxDepth, len(visited)),
// a traversal-progress heuristic rather than a true graph distance.
type TraversalResult struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	DepthReached  int            `json:"depth_reached"`
}
