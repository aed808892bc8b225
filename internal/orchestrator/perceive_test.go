package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/congde/emochat/internal/emotion"
)

type stubAnalyzer struct {
	reading emotion.Reading
	err     error
}

func (s *stubAnalyzer) Analyze(context.Context, string) (emotion.Reading, error) {
	return s.reading, s.err
}

func TestPerceiveIntents(t *testing.T) {
	cases := []struct {
		message string
		intent  string
	}{
		{"how do I stop doomscrolling at night", IntentProblemSolving},
		{"我想戒掉晚睡的习惯", IntentBehaviorChange},
		{"when is the next full moon?", IntentInformationQuery},
		{"明天的会议是什么时候", IntentInformationQuery},
		{"today was just a lot", IntentEmotionalSupport},
	}
	analyzer := &stubAnalyzer{reading: emotion.Reading{Label: "neutral", Intensity: 3}}
	for _, c := range cases {
		p, err := Perceive(context.Background(), analyzer, c.message)
		if err != nil {
			t.Fatalf("Perceive: %v", err)
		}
		if p.Intent != c.intent {
			t.Errorf("intent(%q) = %s, want %s", c.message, p.Intent, c.intent)
		}
	}
}

func TestPerceiveEntities(t *testing.T) {
	analyzer := &stubAnalyzer{reading: emotion.Reading{Label: "anxious", Intensity: 7}}
	p, err := Perceive(context.Background(), analyzer, "明天有个面试，好紧张")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Entities) != 2 {
		t.Fatalf("entities = %v, want time + event", p.Entities)
	}
	if p.Emotion != "anxious" || p.Intensity != 7 {
		t.Errorf("emotion = %s/%v", p.Emotion, p.Intensity)
	}
}

func TestPerceiveAnalyzerFailureDefaultsNeutral(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("model down")}
	p, err := Perceive(context.Background(), analyzer, "hello there, everything okay here")
	if err != nil {
		t.Fatal(err)
	}
	if p.Emotion != "neutral" || p.Intensity != 3 {
		t.Errorf("fallback reading = %s/%v, want neutral/3", p.Emotion, p.Intensity)
	}
}
