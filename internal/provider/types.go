// Package provider talks to OpenAI-compatible chat completion APIs and
// routes generation through a primary/fallback chain.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrGeneration marks a failed response generation. The orchestrator falls
// back to a canned reply when it sees this.
var ErrGeneration = errors.New("generation failed")

// Generator produces a response for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message is one chat turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is a chat completion response.
type ChatResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds the settings for one provider instance.
type Config struct {
	ID          string        `json:"id"`
	Endpoint    string        `json:"endpoint"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}
