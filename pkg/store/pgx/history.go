package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

func (s *Store) Append(ctx context.Context, sessionID string, role string, content string, metadata map[string]any) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	var meta []byte
	if metadata != nil {
		meta, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, sessionID, role, util.SanitizePostgresText(content), meta, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, sessionID string, limit int) ([]store.HistoryMessage, error) {
	// Newest-first in SQL so the limit keeps the most recent turns, then
	// reversed so callers see chronological order.
	rows, err := s.conn.Query(ctx, `
		SELECT id, session_id, role, content, metadata, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	defer rows.Close()

	messages := []store.HistoryMessage{}
	for rows.Next() {
		var msg store.HistoryMessage
		var meta []byte
		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &meta, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) (int, error) {
	tag, err := s.conn.Exec(ctx,
		"DELETE FROM chat_messages WHERE session_id = $1",
		sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear chat history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Sessions(ctx context.Context, limit int) ([]store.SessionInfo, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT session_id, COUNT(*), MAX(created_at)
		FROM chat_messages
		GROUP BY session_id
		ORDER BY MAX(created_at) DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []store.SessionInfo{}
	for rows.Next() {
		var info store.SessionInfo
		if err := rows.Scan(&info.SessionID, &info.MessageCount, &info.LastActivity); err != nil {
			return nil, err
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}
