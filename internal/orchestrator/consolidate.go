package orchestrator

import (
	"strings"

	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/shortterm"
)

// Extraction gate tunables. Lengths are byte counts, which weighs CJK text
// heavier per character, matching how the thresholds were tuned.
const (
	gateMinLen       = 10
	gateLongLen      = 30
	gateHighEmotion  = 7.0
	gateMidEmotion   = 5.0
	importanceLongAt = 50
)

// ShouldExtract is the consolidation gate: short throwaway messages never
// become memories, everything else needs an emotional or lexical signal.
func ShouldExtract(message string, intensity float64) bool {
	n := len(message)
	if n < gateMinLen {
		return false
	}
	if intensity >= gateHighEmotion {
		return true
	}
	if shortterm.HasImportanceKeyword(message) {
		return true
	}
	return n > gateLongLen && intensity >= gateMidEmotion
}

// typeRule classifies a memory candidate. First match wins; the fallthrough
// is semantic.
type typeRule struct {
	memType memory.Type
	match   func(message, role string) bool
}

var recencyTerms = []string{
	"today", "yesterday", "just now", "this morning", "last night", "earlier",
	"今天", "昨天", "刚才", "刚刚", "今早", "昨晚",
}

var chitchatTerms = []string{
	"hello", "hi ", "how are you", "good morning", "good night",
	"你好", "早上好", "晚安", "在吗",
}

var typeRules = []typeRule{
	{memory.TypeEpisodic, func(message, _ string) bool {
		lower := strings.ToLower(message)
		for _, term := range recencyTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}},
	{memory.TypeConversation, func(message, role string) bool {
		if role != "user" && role != "assistant" {
			return false
		}
		lower := strings.ToLower(message)
		for _, term := range chitchatTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}},
}

// ClassifyType picks the memory type for a candidate.
func ClassifyType(message, role string) memory.Type {
	for _, r := range typeRules {
		if r.match(message, role) {
			return r.memType
		}
	}
	return memory.TypeSemantic
}

// ImportanceScore estimates how much a candidate matters:
// a 0.5 baseline, up to +0.3 for emotional intensity, +0.2 for an
// importance keyword, +0.1 for long messages. Clamped to [0, 1].
func ImportanceScore(message string, intensity float64) float64 {
	score := 0.5 + 0.3*(intensity/10)
	if shortterm.HasImportanceKeyword(message) {
		score += 0.2
	}
	if len(message) > importanceLongAt {
		score += 0.1
	}
	return memory.ClampImportance(score)
}

// BuildCandidate turns a gated exchange into a memory record ready for
// storage. Returns nil if the gate rejects the message.
func BuildCandidate(ownerID, sessionID, message, role string, p Perception) *memory.Record {
	if !ShouldExtract(message, p.Intensity) {
		return nil
	}
	return &memory.Record{
		OwnerID:          ownerID,
		SessionID:        sessionID,
		Content:          message,
		Summary:          summarizeContent(message),
		Type:             ClassifyType(message, role),
		Emotion:          p.Emotion,
		EmotionIntensity: p.Intensity,
		Importance:       ImportanceScore(message, p.Intensity),
		Extraction:       "rule_gate",
	}
}

func summarizeContent(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) <= 60 {
		return string(runes)
	}
	return string(runes[:60]) + "..."
}
