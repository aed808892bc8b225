package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// LocalProvider implements Provider over an Ollama-compatible endpoint,
// which only embeds one prompt per request.
type LocalProvider struct {
	cfg    Config
	client *http.Client

	dimOnce sync.Once
	dim     int
}

// NewLocalProvider creates a LocalProvider from the given Config.
func NewLocalProvider(cfg Config) *LocalProvider {
	return &LocalProvider{cfg: cfg, client: newHTTPClient(cfg.Timeout)}
}

// Embed sends each text separately and returns vectors in input order.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		p.dimOnce.Do(func() { p.dim = len(vectors[0]) })
	}
	return vectors, nil
}

func (p *LocalProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: p.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.Endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return result.Embedding, nil
}

// Dimension returns the vector dimension, preferring the size observed on
// the first successful call over the configured default.
func (p *LocalProvider) Dimension() int {
	if p.dim > 0 {
		return p.dim
	}
	return p.cfg.Dimension
}
