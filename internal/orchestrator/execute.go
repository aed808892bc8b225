package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/congde/emochat/internal/protocol"
	"github.com/congde/emochat/internal/tools"
)

// executeSteps runs every tool step of the plan in declared order. A failed
// tool call is recorded with its error and execution continues; one failure
// never aborts the plan.
func executeSteps(ctx context.Context, registry *tools.Registry, plan Plan, logger *zap.Logger) []ActionResult {
	var actions []ActionResult
	for _, step := range plan.Steps {
		if step.Kind != StepTool {
			continue
		}
		call := protocol.ToolCall{
			ID:       uuid.New().String(),
			Name:     step.Tool,
			Params:   step.Args,
			IssuedAt: time.Now(),
		}
		start := time.Now()
		output, err := registry.Execute(ctx, step.Tool, step.Args)
		result := ActionResult{
			Call:    call,
			Elapsed: time.Since(start),
		}
		if err != nil {
			result.Err = err.Error()
			logger.Warn("tool call failed",
				zap.String("tool", step.Tool), zap.Error(err))
		} else {
			result.Success = true
			result.Output = output
		}
		actions = append(actions, result)
	}
	return actions
}

// toolResults converts executed actions into protocol results for tracing.
func toolResults(actions []ActionResult) ([]protocol.ToolCall, []protocol.ToolResult) {
	calls := make([]protocol.ToolCall, len(actions))
	results := make([]protocol.ToolResult, len(actions))
	for i, a := range actions {
		calls[i] = a.Call
		results[i] = protocol.ToolResult{
			CallID:  a.Call.ID,
			Success: a.Success,
			Output:  a.Output,
			Err:     a.Err,
			Elapsed: a.Elapsed,
		}
	}
	return calls, results
}
