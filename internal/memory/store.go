package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStoreUnavailable signals that the similarity index or record backend
// cannot be reached. Distinct from an empty result, which is not an error.
var ErrStoreUnavailable = errors.New("memory store unavailable")

// SearchFilter narrows a vector search by record metadata.
type SearchFilter struct {
	OwnerID string
	Emotion string
}

// IndexHit is a raw nearest-neighbor hit from the similarity index.
// Distance is cosine distance in [0, 2].
type IndexHit struct {
	ID       string
	Distance float64
}

// VectorIndex is the similarity index keyed by record id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]string) error
	Search(ctx context.Context, vector []float32, limit int, filter SearchFilter) ([]IndexHit, error)
}

// RecordStore persists record metadata, parallel to the vector index.
type RecordStore interface {
	Insert(ctx context.Context, rec *Record) error
	GetByIDs(ctx context.Context, ids []string) ([]*Record, error)
	ListRecent(ctx context.Context, ownerID string, limit int) ([]*Record, error)
	BumpAccess(ctx context.Context, ids []string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}

// Embedder turns text into vectors for indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the long-term memory store: a record table plus a parallel
// similarity index, with decay-aware ranked retrieval on top.
type Store struct {
	index   VectorIndex
	records RecordStore
	embed   Embedder
	rank    RankConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore wires a memory store from its collaborators.
func NewStore(index VectorIndex, records RecordStore, embed Embedder, rank RankConfig, logger *zap.Logger) *Store {
	if rank.CandidateMultiplier <= 0 {
		rank = DefaultRankConfig()
	}
	return &Store{
		index:   index,
		records: records,
		embed:   embed,
		rank:    rank,
		logger:  logger,
		now:     time.Now,
	}
}

// Save assigns a stable id, persists metadata and indexes the content for
// similarity search. Duplicate content is allowed; an unreachable backend
// fails with ErrStoreUnavailable.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Importance = ClampImportance(rec.Importance)
	rec.CreatedAt = s.now()
	rec.LastAccessedAt = rec.CreatedAt
	rec.AccessCount = 0
	rec.Active = true

	if err := s.records.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert record: %w: %v", ErrStoreUnavailable, err)
	}

	vectors, err := s.embed.Embed(ctx, []string{rec.Content})
	if err != nil || len(vectors) == 0 {
		return fmt.Errorf("embed content: %w: %v", ErrStoreUnavailable, err)
	}

	payload := map[string]string{
		"owner_id": rec.OwnerID,
		"type":     string(rec.Type),
		"emotion":  rec.Emotion,
	}
	if err := s.index.Upsert(ctx, rec.ID, vectors[0], payload); err != nil {
		return fmt.Errorf("index record: %w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Debug("memory stored",
		zap.String("id", rec.ID),
		zap.String("owner", rec.OwnerID),
		zap.String("type", string(rec.Type)),
		zap.Float64("importance", rec.Importance))
	return nil
}

// Retrieve runs the ranked retrieval pipeline: fetch 3k candidates, drop
// stale and dissimilar hits, apply importance decay, blend the score and
// return the top k. Ordering is deterministic for a fixed store state and
// fixed clock: ties break on record id.
func (s *Store) Retrieve(ctx context.Context, opts RetrieveOptions) ([]Hit, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	vectors, err := s.embed.Embed(ctx, []string{opts.Query})
	if err != nil || len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: %w: %v", ErrStoreUnavailable, err)
	}

	filter := SearchFilter{OwnerID: opts.OwnerID, Emotion: opts.Emotion}
	raw, err := s.index.Search(ctx, vectors[0], opts.TopK*s.rank.CandidateMultiplier, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w: %v", ErrStoreUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(raw))
	distance := make(map[string]float64, len(raw))
	for _, h := range raw {
		ids = append(ids, h.ID)
		distance[h.ID] = h.Distance
	}
	recs, err := s.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load records: %w: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	var hits []Hit
	for _, rec := range recs {
		if !rec.Active {
			continue
		}
		daysAgo := now.Sub(rec.CreatedAt).Hours() / 24
		if opts.TimeWindowDays > 0 && daysAgo > opts.TimeWindowDays {
			continue
		}
		similarity := 1 - distance[rec.ID]/2
		if similarity < s.rank.SimilarityFloor {
			continue
		}
		decayed := s.rank.DecayedImportance(rec.Importance, daysAgo)
		if decayed < opts.MinImportance {
			continue
		}
		hits = append(hits, Hit{
			Record:            rec,
			Similarity:        similarity,
			DecayedImportance: decayed,
			Score:             s.rank.Score(decayed, similarity),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}

	// Access bookkeeping is best-effort: last-writer-wins, never blocks
	// the read path.
	if len(hits) > 0 {
		accessed := make([]string, len(hits))
		for i, h := range hits {
			accessed[i] = h.Record.ID
			h.Record.AccessCount++
			h.Record.LastAccessedAt = now
		}
		if err := s.records.BumpAccess(ctx, accessed, now); err != nil {
			s.logger.Warn("access bump failed", zap.Error(err))
		}
	}

	s.logger.Debug("memory retrieved",
		zap.String("owner", opts.OwnerID),
		zap.Int("candidates", len(raw)),
		zap.Int("returned", len(hits)))
	return hits, nil
}

// RecentByOwner lists an owner's newest active records, for follow-up scans.
func (s *Store) RecentByOwner(ctx context.Context, ownerID string, limit int) ([]*Record, error) {
	recs, err := s.records.ListRecent(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

// SearchSummaries runs a ranked retrieval and returns one line per hit,
// preferring the stored summary over the full content. This is the surface
// exposed to the tool registry.
func (s *Store) SearchSummaries(ctx context.Context, ownerID, query string, topK int) ([]string, error) {
	hits, err := s.Retrieve(ctx, RetrieveOptions{OwnerID: ownerID, Query: query, TopK: topK})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		line := h.Record.Summary
		if line == "" {
			line = h.Record.Content
		}
		out = append(out, line)
	}
	return out, nil
}

// Forget soft-deletes a record. The row and vector stay in place; the record
// just stops matching retrievals.
func (s *Store) Forget(ctx context.Context, id string) error {
	if err := s.records.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate record: %w: %v", ErrStoreUnavailable, err)
	}
	s.logger.Info("memory forgotten", zap.String("id", id))
	return nil
}
