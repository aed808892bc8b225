package store

import (
	"context"
	"fmt"
	"time"

	"github.com/congde/emochat/internal/memory"
)

// Records exposes the memory_records table as a memory.RecordStore.
type Records struct {
	s *Store
}

// Records returns the record-store view over this database.
func (s *Store) Records() *Records { return &Records{s: s} }

// Insert persists a new memory record row.
func (r *Records) Insert(ctx context.Context, rec *memory.Record) error {
	_, err := r.s.db.Exec(ctx, `
		INSERT INTO memory_records
			(id, owner_id, session_id, content, summary, type, emotion,
			 emotion_intensity, importance, extraction, created_at,
			 last_accessed_at, access_count, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.OwnerID, rec.SessionID, rec.Content, rec.Summary,
		string(rec.Type), rec.Emotion, rec.EmotionIntensity, rec.Importance,
		rec.Extraction, rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount, rec.Active,
	)
	if err != nil {
		return fmt.Errorf("insert memory record: %w", err)
	}
	return nil
}

// GetByIDs loads records for the given ids. Missing ids are skipped.
func (r *Records) GetByIDs(ctx context.Context, ids []string) ([]*memory.Record, error) {
	rows, err := r.s.db.Query(ctx, `
		SELECT id, owner_id, session_id, content, summary, type, emotion,
		       emotion_intensity, importance, extraction, created_at,
		       last_accessed_at, access_count, active
		FROM memory_records
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecent returns an owner's newest active records.
func (r *Records) ListRecent(ctx context.Context, ownerID string, limit int) ([]*memory.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.s.db.Query(ctx, `
		SELECT id, owner_id, session_id, content, summary, type, emotion,
		       emotion_intensity, importance, extraction, created_at,
		       last_accessed_at, access_count, active
		FROM memory_records
		WHERE owner_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BumpAccess updates access bookkeeping for retrieved records.
func (r *Records) BumpAccess(ctx context.Context, ids []string, at time.Time) error {
	_, err := r.s.db.Exec(ctx, `
		UPDATE memory_records
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("bump access: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a record.
func (r *Records) Deactivate(ctx context.Context, id string) error {
	_, err := r.s.db.Exec(ctx, `
		UPDATE memory_records SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]*memory.Record, error) {
	var recs []*memory.Record
	for rows.Next() {
		var rec memory.Record
		var typ string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.SessionID, &rec.Content,
			&rec.Summary, &typ, &rec.Emotion, &rec.EmotionIntensity,
			&rec.Importance, &rec.Extraction, &rec.CreatedAt, &rec.LastAccessedAt,
			&rec.AccessCount, &rec.Active); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Type = memory.Type(typ)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
