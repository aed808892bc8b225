package store

import (
	"context"
	"fmt"

	"github.com/congde/emochat/internal/orchestrator"
)

// FollowUps exposes the followups table as an orchestrator.FollowUpSink.
type FollowUps struct {
	s *Store
}

// FollowUps returns the follow-up view over this database.
func (s *Store) FollowUps() *FollowUps { return &FollowUps{s: s} }

// Schedule persists a follow-up proposal.
func (f *FollowUps) Schedule(ctx context.Context, fu *orchestrator.FollowUp) error {
	_, err := f.s.db.Exec(ctx, `
		INSERT INTO followups (id, owner_id, session_id, kind, reason, message, priority, due_at, created_at, delivered)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, FALSE)`,
		fu.ID, fu.OwnerID, fu.SessionID, fu.Kind, fu.Reason, fu.Message, fu.Priority, fu.DueAt, fu.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("schedule follow-up: %w", err)
	}
	return nil
}

// ListPending returns an owner's undelivered follow-ups ordered by due time.
func (f *FollowUps) ListPending(ctx context.Context, ownerID string) ([]*orchestrator.FollowUp, error) {
	rows, err := f.s.db.Query(ctx, `
		SELECT id, owner_id, COALESCE(session_id::text, ''), kind, reason, message, priority, due_at, created_at
		FROM followups
		WHERE owner_id = $1 AND NOT delivered
		ORDER BY due_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()

	var out []*orchestrator.FollowUp
	for rows.Next() {
		var fu orchestrator.FollowUp
		if err := rows.Scan(&fu.ID, &fu.OwnerID, &fu.SessionID, &fu.Kind,
			&fu.Reason, &fu.Message, &fu.Priority, &fu.DueAt, &fu.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		out = append(out, &fu)
	}
	return out, rows.Err()
}

// MarkDelivered flags a follow-up as sent.
func (f *FollowUps) MarkDelivered(ctx context.Context, id string) error {
	_, err := f.s.db.Exec(ctx, `
		UPDATE followups SET delivered = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark follow-up delivered: %w", err)
	}
	return nil
}
