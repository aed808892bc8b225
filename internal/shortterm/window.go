package shortterm

import (
	"sort"
	"strings"
	"time"
)

// Turn is a single conversation turn owned by its session.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	Intensity float64   `json:"intensity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int       `json:"seq"`
}

// markerRule is one entry in the ordered importance rule table.
// Rules are evaluated first-match, in declaration order.
type markerRule struct {
	name  string
	match func(t Turn) bool
}

var markerRules = []markerRule{
	{"frequency_adverb", keywordMatcher(frequencyAdverbs)},
	{"commitment_verb", keywordMatcher(commitmentVerbs)},
	{"emphasis_term", keywordMatcher(emphasisTerms)},
	{"mental_health", keywordMatcher(mentalHealthTerms)},
	{"life_event", keywordMatcher(lifeEventTerms)},
	{"high_intensity", func(t Turn) bool { return t.Intensity > 7.5 }},
	{"explicit_request", isQuestionOrRequest},
}

var (
	frequencyAdverbs = []string{
		"always", "never", "every time", "总是", "从来不", "每次",
	}
	commitmentVerbs = []string{
		"promise", "agree", "decide", "承诺", "答应", "决定",
	}
	emphasisTerms = []string{
		"most important", "the key", "关键是", "最重要",
	}
	mentalHealthTerms = []string{
		"insomnia", "can't sleep", "anxious", "anxiety", "depressed",
		"depression", "失眠", "焦虑", "抑郁", "睡不着",
	}
	lifeEventTerms = []string{
		"quit my job", "quit", "breakup", "broke up", "moving out",
		"辞职", "分手", "搬家", "离职",
	}
)

func keywordMatcher(words []string) func(Turn) bool {
	return func(t Turn) bool {
		lower := strings.ToLower(t.Content)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

// isQuestionOrRequest detects turns phrased as an explicit question or ask.
func isQuestionOrRequest(t Turn) bool {
	c := strings.TrimSpace(t.Content)
	if strings.HasSuffix(c, "?") || strings.HasSuffix(c, "？") {
		return true
	}
	lower := strings.ToLower(c)
	for _, p := range []string{"please ", "can you", "could you", "帮我", "请你", "能不能"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// MarkImportant reports whether a turn should be pinned in the window
// regardless of age. Evaluates the marker rule table in order.
func MarkImportant(t Turn) bool {
	for _, r := range markerRules {
		if r.match(t) {
			return true
		}
	}
	return false
}

// HasImportanceKeyword reports whether text hits any of the keyword groups
// used for importance marking. Shared with memory consolidation, which uses
// the same vocabulary for its extraction gate.
func HasImportanceKeyword(text string) bool {
	t := Turn{Content: text}
	for _, group := range [][]string{
		frequencyAdverbs, commitmentVerbs, emphasisTerms, mentalHealthTerms, lifeEventTerms,
	} {
		if keywordMatcher(group)(t) {
			return true
		}
	}
	return false
}

// TextWeight estimates the context footprint of a string. Wide-script runes
// (CJK and friends) carry more semantic payload per rune, so they weigh 1.5
// against 0.5 for ASCII-ish text.
func TextWeight(s string) float64 {
	var w float64
	for _, r := range s {
		if r >= 0x2E80 {
			w += 1.5
		} else {
			w += 0.5
		}
	}
	return w
}

func turnWeight(t Turn) float64 {
	return TextWeight(t.Content) + TextWeight(t.Role) + TextWeight(t.Emotion)
}

// Truncate bounds the recent conversation window. Every turn flagged
// important is always kept, then the most recent turns fill the remaining
// budget until windowSize non-important turns are included or 80% of
// maxEstimate is reached. The result is returned in chronological order.
func Truncate(history []Turn, windowSize int, maxEstimate float64) []Turn {
	if windowSize <= 0 {
		windowSize = 8
	}

	important := make(map[int]bool, len(history))
	var kept []Turn
	var used float64
	for i, t := range history {
		if MarkImportant(t) {
			important[i] = true
			kept = append(kept, t)
			used += turnWeight(t)
		}
	}

	budget := 0.8 * maxEstimate
	recent := 0
	for i := len(history) - 1; i >= 0; i-- {
		if important[i] {
			continue
		}
		if recent >= windowSize {
			break
		}
		w := turnWeight(history[i])
		if maxEstimate > 0 && used+w > budget {
			break
		}
		kept = append(kept, history[i])
		used += w
		recent++
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Seq != kept[j].Seq {
			return kept[i].Seq < kept[j].Seq
		}
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})
	return kept
}
