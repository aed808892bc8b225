// Package tools holds the registry of callable tools the orchestrator can
// dispatch to during the execute phase.
package tools

import (
	"context"
	"fmt"
)

// ErrUnknownTool is returned when a call names a tool nobody registered.
var ErrUnknownTool = fmt.Errorf("unknown tool")

// Definition describes a tool for planning and prompt construction.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Handler executes a tool call and returns the result as a string.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Registry holds available tools and their handlers.
type Registry struct {
	defs     []Definition
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool definition and its handler. Re-registering a name
// replaces the handler but keeps a single definition entry.
func (r *Registry) Register(def Definition, handler Handler) {
	if _, exists := r.handlers[def.Name]; !exists {
		r.defs = append(r.defs, def)
	}
	r.handlers[def.Name] = handler
}

// Definitions returns all registered tool definitions.
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Execute runs a tool by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, args)
}
