// Package emotion derives a coarse emotion reading from user text. The
// default analyzer is keyword-based so the pipeline works without any model
// call; a model-backed implementation can replace it behind the same
// interface.
package emotion

import (
	"context"
	"strings"
)

// Reading is the detected emotional state of one message.
type Reading struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"` // 0..10
}

// Analyzer detects the emotion of a message.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Reading, error)
}

// rule maps trigger terms to a label and a base intensity. Rules are
// evaluated in order; the first match wins.
type rule struct {
	label     string
	intensity float64
	terms     []string
}

var emotionRules = []rule{
	{"anxious", 8, []string{
		"anxious", "anxiety", "worried", "panic", "can't sleep", "cant sleep",
		"insomnia", "stressed", "overwhelmed",
		"焦虑", "担心", "紧张", "失眠", "睡不着", "压力",
	}},
	{"sad", 7, []string{
		"sad", "depressed", "down", "lonely", "cry", "crying", "hopeless",
		"难过", "伤心", "沮丧", "孤独", "想哭", "绝望",
	}},
	{"angry", 7, []string{
		"angry", "furious", "annoyed", "hate", "unfair",
		"生气", "愤怒", "烦死", "讨厌", "不公平",
	}},
	{"happy", 6, []string{
		"happy", "great", "excited", "wonderful", "glad", "finally did",
		"开心", "高兴", "兴奋", "太好了", "终于",
	}},
}

// intensifiers bump the base intensity when present alongside a match.
var intensifiers = []string{
	"so ", "very ", "really ", "extremely ", "always", "every night", "every day",
	"非常", "特别", "总是", "一直", "每天", "每晚",
}

// KeywordAnalyzer is the default rule-based Analyzer.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer returns the rule-based analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer { return &KeywordAnalyzer{} }

// Analyze scans the message against the ordered emotion rules. Messages that
// match nothing come back neutral with a low intensity.
func (a *KeywordAnalyzer) Analyze(_ context.Context, text string) (Reading, error) {
	lower := strings.ToLower(text)
	for _, r := range emotionRules {
		for _, term := range r.terms {
			if !strings.Contains(lower, term) {
				continue
			}
			intensity := r.intensity
			for _, inc := range intensifiers {
				if strings.Contains(lower, inc) {
					intensity++
					break
				}
			}
			if intensity > 10 {
				intensity = 10
			}
			return Reading{Label: r.label, Intensity: intensity}, nil
		}
	}
	return Reading{Label: "neutral", Intensity: 3}, nil
}
