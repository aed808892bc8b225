// Package embedding turns text into vectors for the memory similarity
// index. Two backends are supported: an OpenAI-compatible embeddings API
// and an Ollama-style local endpoint.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider generates vector embeddings from text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds embedding provider configuration.
type Config struct {
	Provider  string        `json:"provider"` // "api" or "local"
	Endpoint  string        `json:"endpoint"`
	Model     string        `json:"model"`
	APIKey    string        `json:"api_key"`
	Dimension int           `json:"dimension"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// New builds the Provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "api", "":
		return NewAPIProvider(cfg), nil
	case "local":
		return NewLocalProvider(cfg), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
