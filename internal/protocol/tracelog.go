package protocol

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTraceCap bounds the trace log when no capacity is configured.
const DefaultTraceCap = 1000

// Entry is one logged message plus its validation verdict.
type Entry struct {
	Message   *Message  `json:"message"`
	LoggedAt  time.Time `json:"logged_at"`
	Violation string    `json:"violation,omitempty"`
}

// TraceLog is an append-only, size-capped ring of protocol messages.
// Messages that fail validation are still recorded, flagged with the
// violation.
type TraceLog struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
	logger  *zap.Logger
}

// NewTraceLog creates a trace log bounded at capacity (DefaultTraceCap if <= 0).
func NewTraceLog(capacity int, logger *zap.Logger) *TraceLog {
	if capacity <= 0 {
		capacity = DefaultTraceCap
	}
	return &TraceLog{cap: capacity, logger: logger}
}

// Log validates and records a message. The message is appended either way;
// the validation error, if any, is returned so callers can fail fast.
func (l *TraceLog) Log(m *Message, ancestorCalls ...ToolCall) error {
	verr := m.Validate(ancestorCalls...)

	entry := Entry{Message: m, LoggedAt: time.Now()}
	if verr != nil {
		entry.Violation = verr.Error()
		l.logger.Warn("logged invalid protocol message",
			zap.String("id", m.ID),
			zap.String("type", string(m.Type)),
			zap.Error(verr))
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	l.mu.Unlock()

	return verr
}

// Filter returns logged messages matching the given type and/or source.
// Empty arguments match everything.
func (l *TraceLog) Filter(t MessageType, source string) []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Message
	for _, e := range l.entries {
		if t != "" && e.Message.Type != t {
			continue
		}
		if source != "" && e.Message.Source != source {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

// Trace reconstructs the ordered message sequence for one correlation id.
func (l *TraceLog) Trace(correlationID string) []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Message
	for _, e := range l.entries {
		if e.Message.Metadata[CorrelationKey] == correlationID {
			out = append(out, e.Message)
		}
	}
	return out
}

// Violations returns entries that were recorded with a validation flag.
func (l *TraceLog) Violations() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Violation != "" {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many entries are currently retained.
func (l *TraceLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
