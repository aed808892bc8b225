package memory

import (
	"context"
	"strings"
	"testing"
)

func TestProfilerSummary(t *testing.T) {
	recs := newFakeRecords()
	recs.byID["a"] = &Record{
		ID: "a", OwnerID: "u1", Content: "在成都工作", Type: TypeSemantic,
		Importance: 0.8, CreatedAt: fixedNow(), Active: true,
	}
	recs.byID["b"] = &Record{
		ID: "b", OwnerID: "u1", Content: "长内容", Summary: "喜欢跑步",
		Type: TypeSemantic, Importance: 0.9, CreatedAt: fixedNow(), Active: true,
	}
	// Low-importance and non-semantic records stay out of the profile.
	recs.byID["c"] = &Record{
		ID: "c", OwnerID: "u1", Content: "昨天很累", Type: TypeSemantic,
		Importance: 0.4, CreatedAt: fixedNow(), Active: true,
	}
	recs.byID["d"] = &Record{
		ID: "d", OwnerID: "u1", Content: "随便聊聊", Type: TypeConversation,
		Importance: 0.9, CreatedAt: fixedNow(), Active: true,
	}

	p := NewProfiler(recs)
	summary, err := p.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !strings.Contains(summary, "在成都工作") || !strings.Contains(summary, "喜欢跑步") {
		t.Errorf("summary = %q", summary)
	}
	if strings.Contains(summary, "昨天很累") || strings.Contains(summary, "随便聊聊") {
		t.Errorf("unqualified records leaked into profile: %q", summary)
	}
}

func TestProfilerEmptyOwner(t *testing.T) {
	p := NewProfiler(newFakeRecords())
	summary, err := p.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary != "" {
		t.Errorf("summary = %q, want empty", summary)
	}
}
