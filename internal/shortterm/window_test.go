package shortterm

import (
	"fmt"
	"testing"
	"time"
)

func mkTurn(seq int, role, content string, intensity float64) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Intensity: intensity,
		Timestamp: time.Date(2025, 6, 1, 10, 0, seq, 0, time.UTC),
		Seq:       seq,
	}
}

func TestMarkImportant(t *testing.T) {
	cases := []struct {
		name string
		turn Turn
		want bool
	}{
		{"frequency adverb", mkTurn(0, "user", "I always forget to eat lunch", 2), true},
		{"frequency adverb zh", mkTurn(0, "user", "我最近总是失眠", 5), true},
		{"commitment verb", mkTurn(0, "user", "I promise to call her tomorrow", 3), true},
		{"emphasis", mkTurn(0, "user", "the most important thing is my health", 2), true},
		{"mental health", mkTurn(0, "user", "my anxiety is getting worse", 4), true},
		{"life event", mkTurn(0, "user", "I quit my job yesterday", 5), true},
		{"high intensity", mkTurn(0, "user", "that movie was fine", 8.2), true},
		{"explicit question", mkTurn(0, "user", "what should I cook tonight?", 1), true},
		{"request phrase", mkTurn(0, "user", "帮我看看这个日程安排", 1), true},
		{"plain chitchat", mkTurn(0, "user", "the weather is nice today", 3), false},
		{"assistant filler", mkTurn(0, "assistant", "glad to hear it", 2), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MarkImportant(tc.turn); got != tc.want {
				t.Errorf("MarkImportant(%q) = %v, want %v", tc.turn.Content, got, tc.want)
			}
		})
	}
}

func TestTruncateKeepsImportantTurn(t *testing.T) {
	// 10 turns, turn #2 flagged important, window size 8:
	// output is turn #2 plus the 7 most recent, chronologically ordered.
	var history []Turn
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("ordinary remark number %d", i)
		if i == 2 {
			content = "I promise to take my medication"
		}
		history = append(history, mkTurn(i, "user", content, 2))
	}

	got := Truncate(history, 8, 0)
	if len(got) != 9 {
		t.Fatalf("expected 9 turns (1 important + 8 recent window capped at remaining), got %d", len(got))
	}

	foundImportant := false
	for _, turn := range got {
		if turn.Seq == 2 {
			foundImportant = true
		}
	}
	if !foundImportant {
		t.Error("important turn #2 was dropped")
	}

	for i := 1; i < len(got); i++ {
		if got[i].Seq <= got[i-1].Seq {
			t.Fatalf("output not chronological at index %d: %d after %d", i, got[i].Seq, got[i-1].Seq)
		}
	}
}

func TestTruncateSizeBudget(t *testing.T) {
	var history []Turn
	for i := 0; i < 20; i++ {
		history = append(history, mkTurn(i, "user", "some medium length remark about the day", 1))
	}

	perTurn := turnWeight(history[0])
	// Allow roughly three turns within 80% of the estimate cap.
	got := Truncate(history, 8, perTurn*4)
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("expected 1-3 turns under tight budget, got %d", len(got))
	}
	// Budget fill starts from the most recent.
	if got[len(got)-1].Seq != 19 {
		t.Errorf("expected most recent turn kept, last seq = %d", got[len(got)-1].Seq)
	}
}

func TestTruncateNeverDropsImportantForRecent(t *testing.T) {
	var history []Turn
	for i := 0; i < 6; i++ {
		history = append(history, mkTurn(i, "user", "我决定开始跑步", 6)) // all important
	}
	got := Truncate(history, 2, 1) // budget far too small for anything optional
	if len(got) != 6 {
		t.Fatalf("expected all 6 important turns kept, got %d", len(got))
	}
}

func TestTextWeight(t *testing.T) {
	if w := TextWeight("abcd"); w != 2.0 {
		t.Errorf("ascii weight = %v, want 2.0", w)
	}
	if w := TextWeight("你好"); w != 3.0 {
		t.Errorf("cjk weight = %v, want 3.0", w)
	}
	if w := TextWeight(""); w != 0 {
		t.Errorf("empty weight = %v, want 0", w)
	}
}
