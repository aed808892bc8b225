package emotion

import (
	"context"
	"testing"
)

func TestAnalyze(t *testing.T) {
	a := NewKeywordAnalyzer()
	cases := []struct {
		name      string
		text      string
		label     string
		intensity float64
	}{
		{"insomnia zh", "我最近总是失眠", "anxious", 9}, // 总是 intensifier
		{"worried en", "I'm worried about the interview", "anxious", 8},
		{"sad", "feeling pretty sad today", "sad", 7},
		{"angry intensified", "I'm so angry about this", "angry", 8},
		{"happy", "终于做到了，太好了", "happy", 6},
		{"neutral", "what's the weather tomorrow", "neutral", 3},
		{"anxious beats sad on order", "anxious and sad at once", "anxious", 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := a.Analyze(context.Background(), c.text)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if got.Label != c.label {
				t.Errorf("label = %s, want %s", got.Label, c.label)
			}
			if got.Intensity != c.intensity {
				t.Errorf("intensity = %v, want %v", got.Intensity, c.intensity)
			}
		})
	}
}

func TestIntensityCapped(t *testing.T) {
	a := NewKeywordAnalyzer()
	got, err := a.Analyze(context.Background(), "每晚都失眠，非常焦虑，总是睡不着")
	if err != nil {
		t.Fatal(err)
	}
	if got.Intensity > 10 {
		t.Errorf("intensity = %v, want <= 10", got.Intensity)
	}
}
