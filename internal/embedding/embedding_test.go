package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewSelectsProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  bool
	}{
		{"api", false},
		{"", false},
		{"local", false},
		{"bogus", true},
	}
	for _, c := range cases {
		_, err := New(Config{Provider: c.provider})
		if (err != nil) != c.wantErr {
			t.Errorf("New(%q): err = %v", c.provider, err)
		}
	}
}

func TestAPIProviderEmbed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float32{0.1, 0.2, 0.3}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewAPIProvider(Config{Endpoint: srv.URL, Model: "test-model"})

	vectors, err := p.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if len(vectors[0]) != 3 {
		t.Fatalf("got dimension %d, want 3", len(vectors[0]))
	}
	if p.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3 after first embed", p.Dimension())
	}
}

func TestAPIProviderEmbedEmpty(t *testing.T) {
	p := NewAPIProvider(Config{Endpoint: "http://unused", Dimension: 128})
	vectors, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil for empty input, got %v", vectors)
	}
}

func TestAPIProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewAPIProvider(Config{Endpoint: srv.URL})
	if _, err := p.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestDimensionFallback(t *testing.T) {
	p := NewAPIProvider(Config{Endpoint: "http://unused", Dimension: 256})
	if d := p.Dimension(); d != 256 {
		t.Errorf("Dimension() = %d, want configured default 256", d)
	}
}

func TestLocalProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1, 2}})
	}))
	defer srv.Close()

	p := NewLocalProvider(Config{Endpoint: srv.URL, Model: "test-model"})
	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	if p.Dimension() != 2 {
		t.Errorf("Dimension() = %d, want 2", p.Dimension())
	}
}
