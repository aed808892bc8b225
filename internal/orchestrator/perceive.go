package orchestrator

import (
	"context"
	"strings"

	"github.com/congde/emochat/internal/emotion"
)

// intentRule is one entry in the ordered intent classification table.
// First match wins.
type intentRule struct {
	intent string
	match  func(text string, intensity float64) bool
}

var intentRules = []intentRule{
	{IntentProblemSolving, textMatcher(
		"how do i", "how can i", "help me", "fix", "solve", "what should i do",
		"怎么办", "怎么解决", "帮我", "如何",
	)},
	{IntentBehaviorChange, textMatcher(
		"want to start", "want to stop", "want to quit", "give up", "build a habit",
		"想开始", "想戒", "想改", "打算开始", "养成",
	)},
	{IntentInformationQuery, func(text string, _ float64) bool {
		t := strings.TrimSpace(text)
		if strings.HasSuffix(t, "?") || strings.HasSuffix(t, "？") {
			return true
		}
		return textMatcher("what is", "when is", "where is", "是什么", "什么时候", "在哪")(text, 0)
	}},
	// Companion default: everything else is treated as a bid for support.
	{IntentEmotionalSupport, func(string, float64) bool { return true }},
}

var (
	timeEntityTerms = []string{
		"today", "tonight", "tomorrow", "next week", "weekend", "this friday",
		"今天", "今晚", "明天", "下周", "周末", "这周五",
	}
	eventEntityTerms = []string{
		"interview", "exam", "meeting", "birthday", "deadline", "appointment",
		"面试", "考试", "会议", "生日", "截止", "约",
	}
)

func textMatcher(terms ...string) func(string, float64) bool {
	return func(text string, _ float64) bool {
		lower := strings.ToLower(text)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}
}

// Perceive runs emotion analysis, intent classification and light entity
// spotting over the incoming message.
func Perceive(ctx context.Context, analyzer emotion.Analyzer, message string) (Perception, error) {
	reading, err := analyzer.Analyze(ctx, message)
	if err != nil {
		// Emotion analysis is advisory; fall back to neutral.
		reading = emotion.Reading{Label: "neutral", Intensity: 3}
	}

	p := Perception{
		Emotion:   reading.Label,
		Intensity: reading.Intensity,
	}
	for _, r := range intentRules {
		if r.match(message, reading.Intensity) {
			p.Intent = r.intent
			break
		}
	}

	lower := strings.ToLower(message)
	for _, group := range [][]string{timeEntityTerms, eventEntityTerms} {
		for _, term := range group {
			if strings.Contains(lower, term) {
				p.Entities = append(p.Entities, term)
			}
		}
	}
	return p, nil
}
