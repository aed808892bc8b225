package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MemorySearcher is the long-term memory lookup exposed as a tool.
type MemorySearcher interface {
	SearchSummaries(ctx context.Context, ownerID, query string, topK int) ([]string, error)
}

// RegisterBuiltin adds the default tools to a registry. searcher may be nil,
// in which case the memory search tool is not registered.
func RegisterBuiltin(reg *Registry, searcher MemorySearcher) {
	reg.Register(Definition{
		Name:        "get_current_time",
		Description: "Get the current date and time",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return fmt.Sprintf(`{"time":"%s"}`, time.Now().Format(time.RFC3339)), nil
	})

	if searcher == nil {
		return
	}
	reg.Register(Definition{
		Name:        "search_memory",
		Description: "Search the user's long-term memories by free-text query",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"owner_id": map[string]string{"type": "string", "description": "Owner of the memories"},
				"query":    map[string]string{"type": "string", "description": "What to look for"},
				"top_k":    map[string]string{"type": "number", "description": "Maximum results (default 5)"},
			},
			"required": []string{"owner_id", "query"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		owner, _ := args["owner_id"].(string)
		query, _ := args["query"].(string)
		if owner == "" || query == "" {
			return "", fmt.Errorf("search_memory: owner_id and query are required")
		}
		topK := 5
		if v, ok := args["top_k"].(float64); ok && v > 0 {
			topK = int(v)
		}
		summaries, err := searcher.SearchSummaries(ctx, owner, query, topK)
		if err != nil {
			return "", fmt.Errorf("search_memory: %w", err)
		}
		b, _ := json.Marshal(summaries)
		return string(b), nil
	})
}
