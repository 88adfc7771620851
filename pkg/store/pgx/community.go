package pgx

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/trellis-ai/trellis/backend/pkg/common"
)

func (s *Store) CreateCommunity(ctx context.Context, community *common.Community) error {
	if community.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate community id: %w", err)
		}
		community.ID = id
	}
	if community.CreatedAt.IsZero() {
		community.CreatedAt = time.Now().UTC()
	}
	community.EntityCount = len(community.EntityIDs)

	_, err := s.conn.Exec(ctx, `
		INSERT INTO communities (id, name, level, summary, entity_ids, key_entities, entity_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id, level) DO UPDATE SET
			name = EXCLUDED.name,
			summary = EXCLUDED.summary,
			entity_ids = EXCLUDED.entity_ids,
			key_entities = EXCLUDED.key_entities,
			entity_count = EXCLUDED.entity_count`,
		community.ID,
		community.Name,
		community.Level,
		community.Summary,
		community.EntityIDs,
		community.KeyEntities,
		community.EntityCount,
		community.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create community: %w", err)
	}
	return nil
}

func (s *Store) GetCommunitiesByLevel(ctx context.Context, level int, limit int) ([]common.Community, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, level, summary, entity_ids, key_entities, entity_count, created_at
		FROM communities WHERE level = $1
		ORDER BY entity_count DESC LIMIT $2`,
		level, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get communities by level: %w", err)
	}
	defer rows.Close()

	communities := []common.Community{}
	for rows.Next() {
		var community common.Community
		err := rows.Scan(
			&community.ID,
			&community.Name,
			&community.Level,
			&community.Summary,
			&community.EntityIDs,
			&community.KeyEntities,
			&community.EntityCount,
			&community.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}
	return communities, rows.Err()
}

func (s *Store) GetCommunitySummaries(ctx context.Context, level *int, limit int) ([]string, error) {
	query := `
		SELECT summary FROM communities
		WHERE summary <> ''`
	args := []any{}
	if level != nil {
		query += " AND level = $1"
		args = append(args, *level)
	}
	query += fmt.Sprintf(" ORDER BY entity_count DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get community summaries: %w", err)
	}
	defer rows.Close()

	summaries := []string{}
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
