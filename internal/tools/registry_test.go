package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterAndExecute(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{Name: "echo", Description: "echo back"}, func(_ context.Context, args map[string]any) (string, error) {
		s, _ := args["text"].(string)
		return s, nil
	})

	if !reg.Has("echo") {
		t.Fatal("echo not registered")
	}
	out, err := reg.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "hi" {
		t.Errorf("out = %q", out)
	}
	if len(reg.Definitions()) != 1 {
		t.Errorf("definitions = %d, want 1", len(reg.Definitions()))
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Execute(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestReRegisterReplacesHandler(t *testing.T) {
	reg := NewRegistry()
	def := Definition{Name: "t"}
	reg.Register(def, func(context.Context, map[string]any) (string, error) { return "old", nil })
	reg.Register(def, func(context.Context, map[string]any) (string, error) { return "new", nil })

	out, err := reg.Execute(context.Background(), "t", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "new" {
		t.Errorf("out = %q, want new", out)
	}
	if len(reg.Definitions()) != 1 {
		t.Errorf("definitions = %d, want 1", len(reg.Definitions()))
	}
}

type fakeSearcher struct {
	summaries []string
	err       error
}

func (f *fakeSearcher) SearchSummaries(context.Context, string, string, int) ([]string, error) {
	return f.summaries, f.err
}

func TestBuiltinSearchMemory(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltin(reg, &fakeSearcher{summaries: []string{"likes tea"}})

	out, err := reg.Execute(context.Background(), "search_memory",
		map[string]any{"owner_id": "u1", "query": "drinks"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "likes tea") {
		t.Errorf("out = %q", out)
	}

	if _, err := reg.Execute(context.Background(), "search_memory",
		map[string]any{"query": "drinks"}); err == nil {
		t.Error("missing owner_id should fail")
	}
}

func TestBuiltinWithoutSearcher(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltin(reg, nil)
	if reg.Has("search_memory") {
		t.Error("search_memory registered without a searcher")
	}
	if !reg.Has("get_current_time") {
		t.Error("get_current_time missing")
	}
}
