// Package context assembles and budgets the per-request reasoning context:
// the bundle composed from profile, short-term window, long-term memory and
// emotion trend, plus the two-phase reduction that keeps it bounded.
package context

import (
	"time"

	"github.com/congde/emochat/internal/shortterm"
)

// MemoryHighlight is a ranked long-term memory hit embedded in a bundle.
type MemoryHighlight struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	Importance float64 `json:"importance"`
	Score      float64 `json:"score"`
}

// CompactedRef replaces a bulky payload that was moved to external storage.
type CompactedRef struct {
	StoragePath string `json:"storage_path"`
	Size        int    `json:"size"`
	Preview     string `json:"preview"`
}

// ToolPayload is a tool output carried in the bundle. Either Content or
// Compacted is set; compaction is reversible via Expand.
type ToolPayload struct {
	Name      string        `json:"name"`
	Content   string        `json:"content,omitempty"`
	Compacted *CompactedRef `json:"compacted,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Synopsis is the structured summary that irreversibly replaces old turns.
type Synopsis struct {
	Topics     []string `json:"topics,omitempty"`
	Goals      []string `json:"goals,omitempty"`
	Decisions  []string `json:"decisions,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
	EmotionArc string   `json:"emotion_arc,omitempty"`
	LastStop   string   `json:"last_stop,omitempty"`
}

// Optimization records whether and how a bundle was reduced.
type Optimization struct {
	Compacted  bool     `json:"compacted"`
	Summarized bool     `json:"summarized"`
	Offloaded  bool     `json:"offloaded"`
	Steps      []string `json:"steps,omitempty"`
}

// Bundle is the ephemeral per-request context package. Created per pipeline
// run and discarded after response generation unless explicitly offloaded.
type Bundle struct {
	OwnerID      string            `json:"owner_id"`
	SessionID    string            `json:"session_id"`
	Profile      string            `json:"profile"`
	Message      string            `json:"message"`
	Turns        []shortterm.Turn  `json:"turns"`
	Memories     []MemoryHighlight `json:"memories"`
	EmotionTrend string            `json:"emotion_trend"`
	ToolPayloads []ToolPayload     `json:"tool_payloads,omitempty"`
	Synopsis     *Synopsis         `json:"synopsis,omitempty"`
	SizeEstimate float64           `json:"size_estimate"`
	Optimization Optimization      `json:"optimization"`
}

// Pointer references an offloaded bundle in external storage.
type Pointer struct {
	Identifier  string `json:"identifier"`
	StoragePath string `json:"storage_path"`
	Summary     string `json:"summary"`
	Offloaded   bool   `json:"offloaded"`
}

// Threshold levels for a bundle size relative to the configured limit.
const (
	LevelSafe     = "safe"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Report is the budget status of a bundle.
type Report struct {
	SizeEstimate   float64 `json:"size_estimate"`
	UsedPercent    float64 `json:"used_percent"`
	Level          string  `json:"level"`
	Recommendation string  `json:"recommendation"`
}
