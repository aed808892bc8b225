package context

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/congde/emochat/internal/blobstore"
	"go.uber.org/zap"
)

// Config holds the budget manager's tunables.
type Config struct {
	Limit           float64 // configured size limit L
	CompactAt       float64 // compaction trigger as a fraction of L
	SummarizeAt     float64 // summarization trigger as a fraction of L
	WarningCeiling  float64 // level stays warning up to this multiple of L
	MinCompactBytes int     // payloads smaller than this are not worth compacting
	PreviewRunes    int     // preview length kept for compacted payloads
}

// DefaultConfig returns the documented thresholds.
func DefaultConfig() Config {
	return Config{
		Limit:           8000,
		CompactAt:       0.8,
		SummarizeAt:     1.0,
		WarningCeiling:  2.5,
		MinCompactBytes: 64,
		PreviewRunes:    80,
	}
}

// Manager enforces the context budget: status reporting, two-phase
// reduction (reversible compaction, then irreversible summarization) and
// whole-bundle offload to external storage.
type Manager struct {
	cfg    Config
	blobs  blobstore.Store
	logger *zap.Logger
}

// NewManager creates a budget manager over the given blob store.
func NewManager(cfg Config, blobs blobstore.Store, logger *zap.Logger) *Manager {
	if cfg.Limit <= 0 {
		cfg = DefaultConfig()
	}
	return &Manager{cfg: cfg, blobs: blobs, logger: logger}
}

// Limit exposes the configured size limit.
func (m *Manager) Limit() float64 { return m.cfg.Limit }

// ShouldCompact reports whether a bundle of the given size wants phase-1
// reduction.
func (m *Manager) ShouldCompact(size float64) bool {
	return size >= m.cfg.CompactAt*m.cfg.Limit
}

// ShouldSummarize reports whether a bundle of the given size wants phase-2
// reduction.
func (m *Manager) ShouldSummarize(size float64) bool {
	return size >= m.cfg.SummarizeAt*m.cfg.Limit
}

// Status reports where a bundle sits relative to the budget.
func (m *Manager) Status(b *Bundle) Report {
	size := EstimateSize(b)
	r := Report{
		SizeEstimate: size,
		UsedPercent:  100 * size / m.cfg.Limit,
	}
	switch {
	case size < m.cfg.Limit:
		r.Level = LevelSafe
		r.Recommendation = "no action needed"
		if m.ShouldCompact(size) {
			r.Recommendation = "approaching limit, compaction recommended"
		}
	case size <= m.cfg.WarningCeiling*m.cfg.Limit:
		r.Level = LevelWarning
		r.Recommendation = "reduce: compact tool payloads, then summarize old turns"
	default:
		r.Level = LevelCritical
		r.Recommendation = "reduce immediately; offload least-important content if reduction is not enough"
	}
	return r
}

// Reduce shrinks a bundle in place. Phase 1 compacts bulky reconstructable
// payloads to external storage; phase 2, only if still over threshold,
// collapses old turns into a synopsis. If the bundle is still critical
// afterwards, the least-important memory highlights are force-offloaded
// instead of failing the request.
func (m *Manager) Reduce(ctx context.Context, b *Bundle, preserveRecentN int) error {
	before := EstimateSize(b)

	if m.ShouldCompact(before) {
		if err := m.compact(ctx, b, preserveRecentN); err != nil {
			m.logger.Warn("compaction failed, continuing", zap.Error(err))
		}
	}

	if size := EstimateSize(b); m.ShouldSummarize(size) {
		m.summarize(b, preserveRecentN)
	}

	b.SizeEstimate = EstimateSize(b)
	if b.SizeEstimate > m.cfg.WarningCeiling*m.cfg.Limit {
		if err := m.forceOffloadMemories(ctx, b); err != nil {
			return fmt.Errorf("forced offload: %w", err)
		}
		b.SizeEstimate = EstimateSize(b)
	}

	m.logger.Info("bundle reduced",
		zap.String("session", b.SessionID),
		zap.Float64("before", before),
		zap.Float64("after", b.SizeEstimate))
	return nil
}

// compact moves tool payloads older than the most recent preserveRecentN to
// the blob store, keyed by content hash, leaving a stub behind.
func (m *Manager) compact(ctx context.Context, b *Bundle, preserveRecentN int) error {
	cutoff := len(b.ToolPayloads) - preserveRecentN
	for i := 0; i < cutoff; i++ {
		p := &b.ToolPayloads[i]
		if p.Compacted != nil || len(p.Content) < m.cfg.MinCompactBytes {
			continue
		}
		sum := sha256.Sum256([]byte(p.Content))
		path := "ctx/" + hex.EncodeToString(sum[:])
		if err := m.blobs.Put(ctx, path, []byte(p.Content)); err != nil {
			return fmt.Errorf("store payload %s: %w", p.Name, err)
		}
		p.Compacted = &CompactedRef{
			StoragePath: path,
			Size:        len(p.Content),
			Preview:     truncateRunes(p.Content, m.cfg.PreviewRunes),
		}
		p.Content = ""
		b.Optimization.Compacted = true
		b.Optimization.Steps = append(b.Optimization.Steps, "compact:"+p.Name)
	}
	return nil
}

// Expand reverses compaction, restoring every stubbed payload from storage.
func (m *Manager) Expand(ctx context.Context, b *Bundle) error {
	for i := range b.ToolPayloads {
		p := &b.ToolPayloads[i]
		if p.Compacted == nil {
			continue
		}
		data, err := m.blobs.Get(ctx, p.Compacted.StoragePath)
		if err != nil {
			return fmt.Errorf("restore payload %s: %w", p.Name, err)
		}
		p.Content = string(data)
		p.Compacted = nil
	}
	b.SizeEstimate = EstimateSize(b)
	return nil
}

// summarize irreversibly collapses turns older than preserveRecentN into a
// structured synopsis. The raw turns leave the live bundle; anything
// separately consolidated stays retrievable from long-term memory.
func (m *Manager) summarize(b *Bundle, preserveRecentN int) {
	if len(b.Turns) <= preserveRecentN {
		return
	}
	old := b.Turns[:len(b.Turns)-preserveRecentN]
	syn := &Synopsis{}

	topicSet := make(map[string]bool)
	for _, t := range old {
		for _, kw := range topicWords(t.Content) {
			if !topicSet[kw] && len(syn.Topics) < 8 {
				topicSet[kw] = true
				syn.Topics = append(syn.Topics, kw)
			}
		}
		lower := strings.ToLower(t.Content)
		switch {
		case containsAny(lower, "decide", "decided", "决定"):
			syn.Decisions = appendCapped(syn.Decisions, t.Content, 5)
		case containsAny(lower, "want to", "hope", "plan to", "想", "希望", "打算"):
			syn.Goals = appendCapped(syn.Goals, t.Content, 5)
		case strings.HasSuffix(strings.TrimSpace(t.Content), "?"),
			strings.HasSuffix(strings.TrimSpace(t.Content), "？"):
			syn.Unresolved = appendCapped(syn.Unresolved, t.Content, 5)
		}
	}
	if len(old) > 0 {
		first, last := old[0], old[len(old)-1]
		if first.Emotion != "" || last.Emotion != "" {
			syn.EmotionArc = fmt.Sprintf("%s → %s", first.Emotion, last.Emotion)
		}
		syn.LastStop = truncateRunes(last.Content, 120)
	}

	b.Synopsis = syn
	b.Turns = b.Turns[len(b.Turns)-preserveRecentN:]
	b.Optimization.Summarized = true
	b.Optimization.Steps = append(b.Optimization.Steps,
		fmt.Sprintf("summarize:%d_turns", len(old)))
}

// forceOffloadMemories drops the lowest-scoring memory highlights to
// external storage until the bundle leaves the critical band.
func (m *Manager) forceOffloadMemories(ctx context.Context, b *Bundle) error {
	sort.Slice(b.Memories, func(i, j int) bool {
		return b.Memories[i].Score > b.Memories[j].Score
	})
	ceiling := m.cfg.WarningCeiling * m.cfg.Limit
	for len(b.Memories) > 0 && EstimateSize(b) > ceiling {
		last := b.Memories[len(b.Memories)-1]
		data, err := json.Marshal(last)
		if err != nil {
			return fmt.Errorf("marshal memory %s: %w", last.ID, err)
		}
		if err := m.blobs.Put(ctx, "ctx/mem/"+last.ID, data); err != nil {
			return fmt.Errorf("offload memory %s: %w", last.ID, err)
		}
		b.Memories = b.Memories[:len(b.Memories)-1]
		b.Optimization.Steps = append(b.Optimization.Steps, "force_offload:"+last.ID)
	}
	b.Optimization.Offloaded = true
	return nil
}

// Offload writes the full bundle to external storage and returns a pointer.
func (m *Manager) Offload(ctx context.Context, b *Bundle, identifier string) (*Pointer, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	path := "bundle/" + identifier
	if err := m.blobs.Put(ctx, path, data); err != nil {
		return nil, fmt.Errorf("offload bundle %s: %w", identifier, err)
	}
	m.logger.Info("bundle offloaded",
		zap.String("identifier", identifier),
		zap.Int("bytes", len(data)))
	return &Pointer{
		Identifier:  identifier,
		StoragePath: path,
		Summary:     truncateRunes(b.Message, 120),
		Offloaded:   true,
	}, nil
}

// Load reverses Offload exactly: the returned bundle round-trips deep-equal.
func (m *Manager) Load(ctx context.Context, ptr *Pointer) (*Bundle, error) {
	data, err := m.blobs.Get(ctx, ptr.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", ptr.Identifier, err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", ptr.Identifier, err)
	}
	return &b, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendCapped(dst []string, s string, limit int) []string {
	if len(dst) >= limit {
		return dst
	}
	return append(dst, truncateRunes(s, 80))
}

// topicWords pulls a few salient lowercase tokens out of a turn.
func topicWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r > 127)
	})
	var out []string
	for _, f := range fields {
		w := strings.ToLower(f)
		if len([]rune(w)) < 2 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) >= 3 {
			break
		}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "have": true, "been": true, "this": true,
	"that": true, "with": true, "from": true, "they": true, "will": true,
	"what": true, "when": true, "like": true, "just": true, "into": true,
	"than": true, "them": true, "some": true, "could": true, "would": true,
	"there": true, "about": true, "really": true,
}
