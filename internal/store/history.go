package store

import (
	"context"
	"fmt"

	"github.com/congde/emochat/internal/shortterm"
)

// FindOrCreateSession returns the active session for an owner and channel,
// creating one when none exists.
func (s *Store) FindOrCreateSession(ctx context.Context, ownerID, channel string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO sessions (id, owner_id, channel, status)
		VALUES (gen_random_uuid(), $1, $2, 'active')
		ON CONFLICT (owner_id, channel)
		DO UPDATE SET status = 'active'
		RETURNING id`,
		ownerID, channel,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("find or create session: %w", err)
	}
	return id, nil
}

// AppendTurn stores one conversation turn. The sequence number is assigned
// per session by the database.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, t shortterm.Turn) (int, error) {
	var seq int
	err := s.db.QueryRow(ctx, `
		INSERT INTO turns (id, session_id, seq, role, content, emotion, intensity, created_at)
		VALUES (gen_random_uuid(), $1,
			COALESCE((SELECT MAX(seq) + 1 FROM turns WHERE session_id = $1), 0),
			$2, $3, $4, $5, $6)
		RETURNING seq`,
		sessionID, t.Role, t.Content, t.Emotion, t.Intensity, t.Timestamp,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append turn: %w", err)
	}
	return seq, nil
}

// GetTurns retrieves the newest turns of a session in chronological order.
func (s *Store) GetTurns(ctx context.Context, sessionID string, limit int) ([]shortterm.Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT seq, role, content, emotion, intensity, created_at
		FROM (
			SELECT seq, role, content, emotion, intensity, created_at
			FROM turns
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) newest
		ORDER BY seq ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	var turns []shortterm.Turn
	for rows.Next() {
		var t shortterm.Turn
		if err := rows.Scan(&t.Seq, &t.Role, &t.Content, &t.Emotion, &t.Intensity, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
