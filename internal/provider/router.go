package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router chains generators: the primary is tried first, then each fallback
// in registration order. It implements Generator itself.
type Router struct {
	mu      sync.RWMutex
	chain   []Generator
	ids     []string
	logger  *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// Register appends a generator to the chain. The first registered is the
// primary.
func (r *Router) Register(id string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = append(r.chain, g)
	r.ids = append(r.ids, id)
	r.logger.Info("registered generation provider", zap.String("id", id))
}

// Generate tries each generator in order until one succeeds.
func (r *Router) Generate(ctx context.Context, prompt string) (string, error) {
	r.mu.RLock()
	chain := r.chain
	ids := r.ids
	r.mu.RUnlock()

	if len(chain) == 0 {
		return "", fmt.Errorf("%w: no providers registered", ErrGeneration)
	}

	var lastErr error
	for i, g := range chain {
		out, err := g.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		r.logger.Warn("provider failed, trying next",
			zap.String("provider", ids[i]), zap.Error(err))
	}
	return "", fmt.Errorf("%w: all providers failed: %v", ErrGeneration, lastErr)
}
