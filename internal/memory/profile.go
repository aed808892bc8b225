package memory

import (
	"context"
	"fmt"
	"strings"
)

const (
	profileScanLimit     = 50
	profileMaxFacts      = 5
	profileMinImportance = 0.6
)

// Profiler derives a terse owner profile from stored semantic memories.
type Profiler struct {
	records RecordStore
}

// NewProfiler creates a profiler over the record backend.
func NewProfiler(records RecordStore) *Profiler {
	return &Profiler{records: records}
}

// Summary joins the owner's most important recent semantic facts into one
// line. An owner with no qualifying facts yields an empty summary, which is
// not an error.
func (p *Profiler) Summary(ctx context.Context, ownerID string) (string, error) {
	recs, err := p.records.ListRecent(ctx, ownerID, profileScanLimit)
	if err != nil {
		return "", fmt.Errorf("profile scan: %w: %v", ErrStoreUnavailable, err)
	}
	var facts []string
	for _, r := range recs {
		if r.Type != TypeSemantic || r.Importance < profileMinImportance {
			continue
		}
		line := r.Summary
		if line == "" {
			line = r.Content
		}
		facts = append(facts, line)
		if len(facts) == profileMaxFacts {
			break
		}
	}
	return strings.Join(facts, "；"), nil
}
