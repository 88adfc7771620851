package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/common"
)

const entityColumns = "id, name, name_lower, type, description, embedding, source_document_id, created_at, updated_at"

func scanEntity(row pgx.Row) (*common.Entity, error) {
	var entity common.Entity
	var embedding *pgvector.Vector
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.NameLower,
		&entity.Type,
		&entity.Description,
		&embedding,
		&entity.SourceDocumentID,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		entity.Embedding = embedding.Slice()
	}
	return &entity, nil
}

func collectEntities(rows pgx.Rows) ([]common.Entity, error) {
	defer rows.Close()

	entities := []common.Entity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}
	return entities, rows.Err()
}

func (s *Store) CreateEntity(ctx context.Context, entity *common.Entity) error {
	if entity.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate entity id: %w", err)
		}
		entity.ID = id
	}
	// Model output can carry NUL bytes and invalid UTF-8 that Postgres
	// rejects.
	entity.Name = util.SanitizePostgresText(entity.Name)
	entity.Description = util.SanitizePostgresText(entity.Description)
	entity.NameLower = strings.ToLower(entity.Name)

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	var embedding *pgvector.Vector
	if len(entity.Embedding) > 0 {
		vec := pgvector.NewVector(entity.Embedding)
		embedding = &vec
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO entities (id, name, name_lower, type, description, embedding, source_document_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id, type) DO UPDATE SET
			name = EXCLUDED.name,
			name_lower = EXCLUDED.name_lower,
			description = EXCLUDED.description,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`,
		entity.ID,
		entity.Name,
		entity.NameLower,
		entity.Type,
		entity.Description,
		embedding,
		entity.SourceDocumentID,
		entity.CreatedAt,
		entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, id string, entityType string) (*common.Entity, error) {
	row := s.conn.QueryRow(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE id = $1 AND type = $2",
		id, entityType,
	)
	entity, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

func (s *Store) GetEntityByID(ctx context.Context, id string) (*common.Entity, error) {
	row := s.conn.QueryRow(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE id = $1",
		id,
	)
	entity, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity by id: %w", err)
	}
	return entity, nil
}

func (s *Store) FindEntitiesByName(ctx context.Context, name string, entityType string, limit int) ([]common.Entity, error) {
	pattern := "%" + strings.ToLower(name) + "%"

	var rows pgx.Rows
	var err error
	if entityType != "" {
		rows, err = s.conn.Query(ctx,
			"SELECT "+entityColumns+" FROM entities WHERE name_lower LIKE $1 AND type = $2 ORDER BY name LIMIT $3",
			pattern, entityType, limit,
		)
	} else {
		rows, err = s.conn.Query(ctx,
			"SELECT "+entityColumns+" FROM entities WHERE name_lower LIKE $1 ORDER BY name LIMIT $2",
			pattern, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entities by name: %w", err)
	}
	return collectEntities(rows)
}

func (s *Store) GetEntitiesByType(ctx context.Context, entityType string, limit int) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE type = $1 ORDER BY name LIMIT $2",
		entityType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entities by type: %w", err)
	}
	return collectEntities(rows)
}
