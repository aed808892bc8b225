package orchestrator

import (
	"math"
	"testing"

	"github.com/congde/emochat/internal/memory"
)

func TestShouldExtract(t *testing.T) {
	cases := []struct {
		name      string
		message   string
		intensity float64
		want      bool
	}{
		{"too short", "ok thanks", 9, false},
		{"high intensity", "今晚心里特别乱完全静不下来", 8, true},
		{"keyword without intensity", "I promise I will call my mom this weekend", 2, true},
		{"long with mid intensity", "work has been piling up and I keep pushing my own plans back again", 5, true},
		{"long but calm and plain", "we walked around the lake and then got coffee at the usual place", 3, false},
		{"insomnia scenario", "我最近总是失眠", 8, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ShouldExtract(c.message, c.intensity); got != c.want {
				t.Errorf("ShouldExtract(%q, %v) = %v, want %v", c.message, c.intensity, got, c.want)
			}
		})
	}
}

func TestImportanceScore(t *testing.T) {
	// 0.5 + 0.3*(8/10) = 0.74, plus 0.2 keyword bonus for 总是.
	got := ImportanceScore("我最近总是失眠", 8)
	want := 0.94
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}

	// Clamped at 1.
	long := "总是" + stringOfRunes('字', 60)
	if got := ImportanceScore(long, 10); got != 1 {
		t.Errorf("score = %v, want clamped 1", got)
	}

	// No bonuses.
	if got := ImportanceScore("hello there friend", 0); got != 0.5 {
		t.Errorf("score = %v, want 0.5 baseline", got)
	}
}

func stringOfRunes(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

func TestClassifyType(t *testing.T) {
	cases := []struct {
		message string
		role    string
		want    memory.Type
	}{
		{"I had a rough meeting today", "user", memory.TypeEpisodic},
		{"昨天跟朋友吵了一架", "user", memory.TypeEpisodic},
		{"hello, how are you doing", "user", memory.TypeConversation},
		{"I think I work better in the mornings", "user", memory.TypeSemantic},
		// Episodic wins over conversation when both match.
		{"hello, I quit my job today", "user", memory.TypeEpisodic},
	}
	for _, c := range cases {
		if got := ClassifyType(c.message, c.role); got != c.want {
			t.Errorf("ClassifyType(%q) = %s, want %s", c.message, got, c.want)
		}
	}
}

func TestBuildCandidate(t *testing.T) {
	p := Perception{Emotion: "anxious", Intensity: 8}
	rec := BuildCandidate("u1", "s1", "这段时间我总是失眠，白天完全没精神", "user", p)
	if rec == nil {
		t.Fatal("candidate rejected by gate")
	}
	if rec.OwnerID != "u1" || rec.SessionID != "s1" {
		t.Errorf("identity = %s/%s", rec.OwnerID, rec.SessionID)
	}
	if rec.Emotion != "anxious" || rec.EmotionIntensity != 8 {
		t.Errorf("emotion = %s/%v", rec.Emotion, rec.EmotionIntensity)
	}
	if rec.Importance < 0.7 || rec.Importance > 1 {
		t.Errorf("importance = %v", rec.Importance)
	}
	if rec.Extraction != "rule_gate" {
		t.Errorf("extraction = %q", rec.Extraction)
	}

	if got := BuildCandidate("u1", "s1", "嗯", "user", p); got != nil {
		t.Error("short message should not become a memory")
	}
}
