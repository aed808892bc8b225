package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/shortterm"
	"go.uber.org/zap"
)

// Retriever is the long-term memory lookup the assembler depends on.
type Retriever interface {
	Retrieve(ctx context.Context, opts memory.RetrieveOptions) ([]memory.Hit, error)
}

// ProfileProvider supplies the owner's profile summary.
type ProfileProvider interface {
	Summary(ctx context.Context, ownerID string) (string, error)
}

// AssembleOptions tunes one assembly pass.
type AssembleOptions struct {
	WindowSize     int     // short-term window size (default 8)
	TopK           int     // long-term hits to retrieve (default 5)
	TimeWindowDays float64 // long-term recency horizon (default 30)
	MinImportance  float64 // long-term decayed-importance floor (default 0.3)
	PreserveRecent int     // turns/payloads protected during reduction (default 5)
	Emotion        string  // optional retrieval filter; empty retrieves across emotions
}

func (o *AssembleOptions) defaults() {
	if o.WindowSize <= 0 {
		o.WindowSize = 8
	}
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.TimeWindowDays <= 0 {
		o.TimeWindowDays = 30
	}
	if o.MinImportance <= 0 {
		o.MinImportance = 0.3
	}
	if o.PreserveRecent <= 0 {
		o.PreserveRecent = 5
	}
}

// Assembler composes profile, short-term window, long-term memory and
// emotion trend into one bounded Bundle.
type Assembler struct {
	retriever Retriever
	profile   ProfileProvider
	manager   *Manager
	logger    *zap.Logger
}

// NewAssembler wires an assembler from its collaborators. profile may be nil.
func NewAssembler(retriever Retriever, profile ProfileProvider, manager *Manager, logger *zap.Logger) *Assembler {
	return &Assembler{retriever: retriever, profile: profile, manager: manager, logger: logger}
}

// Manager exposes the underlying budget manager.
func (a *Assembler) Manager() *Manager { return a.manager }

// Assemble builds the per-request bundle. A missing profile or an
// unreachable memory store degrades the bundle instead of failing the
// request; if the result is not within budget it is reduced before return.
func (a *Assembler) Assemble(ctx context.Context, ownerID, sessionID, message string,
	history []shortterm.Turn, emotionLabel string, intensity float64, opts AssembleOptions) (*Bundle, error) {

	opts.defaults()

	b := &Bundle{
		OwnerID:      ownerID,
		SessionID:    sessionID,
		Message:      message,
		EmotionTrend: fmt.Sprintf("current: %s (intensity %.1f)", emotionLabel, intensity),
	}

	if a.profile != nil {
		summary, err := a.profile.Summary(ctx, ownerID)
		if err != nil {
			a.logger.Warn("profile summary unavailable", zap.Error(err))
		} else {
			b.Profile = summary
		}
	}

	// The window caps turn count only. Size budgeting is left to the
	// manager below, so overflow is summarized into a synopsis rather than
	// dropped here.
	b.Turns = shortterm.Truncate(history, opts.WindowSize, 0)

	hits, err := a.retriever.Retrieve(ctx, memory.RetrieveOptions{
		OwnerID:        ownerID,
		Query:          message,
		TopK:           opts.TopK,
		TimeWindowDays: opts.TimeWindowDays,
		MinImportance:  opts.MinImportance,
		Emotion:        opts.Emotion,
	})
	if err != nil {
		a.logger.Warn("long-term retrieval degraded", zap.Error(err))
	}
	for _, h := range hits {
		content := h.Record.Summary
		if content == "" {
			content = h.Record.Content
		}
		b.Memories = append(b.Memories, MemoryHighlight{
			ID:         h.Record.ID,
			Content:    content,
			Type:       string(h.Record.Type),
			Importance: h.DecayedImportance,
			Score:      h.Score,
		})
	}

	b.SizeEstimate = EstimateSize(b)
	if report := a.manager.Status(b); report.Level != LevelSafe {
		if err := a.manager.Reduce(ctx, b, opts.PreserveRecent); err != nil {
			a.logger.Warn("bundle reduction incomplete", zap.Error(err))
		}
	}

	a.logger.Debug("bundle assembled",
		zap.String("owner", ownerID),
		zap.Int("turns", len(b.Turns)),
		zap.Int("memories", len(b.Memories)),
		zap.Float64("size", b.SizeEstimate))
	return b, nil
}

// BuildPrompt serializes a bundle into ordered prompt sections. The exact
// wording belongs to the caller's preamble; this fixes only the ordering.
func BuildPrompt(b *Bundle, systemPreamble string) string {
	var sb strings.Builder
	if systemPreamble != "" {
		sb.WriteString(systemPreamble)
		sb.WriteString("\n\n")
	}
	if b.Profile != "" {
		sb.WriteString("[用户画像]\n")
		sb.WriteString(b.Profile)
		sb.WriteString("\n\n")
	}
	if len(b.Memories) > 0 {
		sb.WriteString("[记忆要点]\n")
		for _, m := range b.Memories {
			fmt.Fprintf(&sb, "- (%s, %.2f) %s\n", m.Type, m.Score, m.Content)
		}
		sb.WriteString("\n")
	}
	if b.EmotionTrend != "" {
		sb.WriteString("[情绪状态]\n")
		sb.WriteString(b.EmotionTrend)
		sb.WriteString("\n\n")
	}
	if b.Synopsis != nil {
		sb.WriteString("[早前对话摘要]\n")
		if len(b.Synopsis.Topics) > 0 {
			fmt.Fprintf(&sb, "话题: %s\n", strings.Join(b.Synopsis.Topics, ", "))
		}
		if len(b.Synopsis.Decisions) > 0 {
			fmt.Fprintf(&sb, "已决定: %s\n", strings.Join(b.Synopsis.Decisions, "; "))
		}
		if len(b.Synopsis.Unresolved) > 0 {
			fmt.Fprintf(&sb, "未解决: %s\n", strings.Join(b.Synopsis.Unresolved, "; "))
		}
		if b.Synopsis.LastStop != "" {
			fmt.Fprintf(&sb, "上次停在: %s\n", b.Synopsis.LastStop)
		}
		sb.WriteString("\n")
	}
	if len(b.Turns) > 0 {
		sb.WriteString("[最近对话]\n")
		for _, t := range b.Turns {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
		sb.WriteString("\n")
	}
	if len(b.ToolPayloads) > 0 {
		sb.WriteString("[工具结果]\n")
		for _, p := range b.ToolPayloads {
			content := p.Content
			if content == "" && p.Compacted != nil {
				content = p.Compacted.Preview
			}
			fmt.Fprintf(&sb, "- %s: %s\n", p.Name, content)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("[当前消息]\n")
	sb.WriteString(b.Message)
	sb.WriteString("\n\n[回复要求]\n简洁、共情、与记忆一致。")
	return sb.String()
}
