package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/trellis-ai/trellis/backend/pkg/common"
)

const relationshipColumns = "id, source_id, target_id, type, weight, description, source_document_id, created_at"

func collectRelationships(rows pgx.Rows) ([]common.Relationship, error) {
	defer rows.Close()

	rels := []common.Relationship{}
	for rows.Next() {
		var rel common.Relationship
		err := rows.Scan(
			&rel.ID,
			&rel.SourceID,
			&rel.TargetID,
			&rel.Type,
			&rel.Weight,
			&rel.Description,
			&rel.SourceDocumentID,
			&rel.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func (s *Store) CreateRelationship(ctx context.Context, rel *common.Relationship) error {
	if rel.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate relationship id: %w", err)
		}
		rel.ID = id
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	// No foreign keys on source_id/target_id: a relationship may reference an
	// entity that was never created or was since removed. Readers resolve
	// endpoints defensively.
	_, err := s.conn.Exec(ctx, `
		INSERT INTO relationships (id, source_id, target_id, type, weight, description, source_document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		rel.ID,
		rel.SourceID,
		rel.TargetID,
		rel.Type,
		rel.Weight,
		rel.Description,
		rel.SourceDocumentID,
		rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (s *Store) GetOutgoingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error) {
	var rows pgx.Rows
	var err error
	if relType != "" {
		rows, err = s.conn.Query(ctx,
			"SELECT "+relationshipColumns+" FROM relationships WHERE source_id = $1 AND type = $2 ORDER BY weight DESC LIMIT $3",
			entityID, relType, limit,
		)
	} else {
		rows, err = s.conn.Query(ctx,
			"SELECT "+relationshipColumns+" FROM relationships WHERE source_id = $1 ORDER BY weight DESC LIMIT $2",
			entityID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outgoing relationships: %w", err)
	}
	return collectRelationships(rows)
}

func (s *Store) GetIncomingRelationships(ctx context.Context, entityID string, relType string, limit int) ([]common.Relationship, error) {
	var rows pgx.Rows
	var err error
	if relType != "" {
		rows, err = s.conn.Query(ctx,
			"SELECT "+relationshipColumns+" FROM relationships WHERE target_id = $1 AND type = $2 ORDER BY weight DESC LIMIT $3",
			entityID, relType, limit,
		)
	} else {
		rows, err = s.conn.Query(ctx,
			"SELECT "+relationshipColumns+" FROM relationships WHERE target_id = $1 ORDER BY weight DESC LIMIT $2",
			entityID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incoming relationships: %w", err)
	}
	return collectRelationships(rows)
}
