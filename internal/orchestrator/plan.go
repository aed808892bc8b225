package orchestrator

import (
	"context"

	"github.com/congde/emochat/internal/tools"
)

// Planner turns a perceived message into an execution plan.
type Planner interface {
	Plan(ctx context.Context, ownerID, message string, p Perception) (Plan, error)
}

// RulePlanner is the default planner: a small ordered rule table over the
// perceived intent and spotted entities. Every plan ends with a respond
// step.
type RulePlanner struct {
	registry *tools.Registry
}

// NewRulePlanner creates a planner over the given tool registry.
func NewRulePlanner(registry *tools.Registry) *RulePlanner {
	return &RulePlanner{registry: registry}
}

// Plan builds tool steps the registry can actually serve, then the respond
// step. Steps execute in the order declared here.
func (p *RulePlanner) Plan(_ context.Context, ownerID, message string, perception Perception) (Plan, error) {
	plan := Plan{Goal: goalFor(perception.Intent)}

	if len(perception.Entities) > 0 && p.registry.Has("get_current_time") {
		plan.Steps = append(plan.Steps, Step{Kind: StepTool, Tool: "get_current_time"})
	}
	if perception.Intent == IntentInformationQuery && p.registry.Has("search_memory") {
		plan.Steps = append(plan.Steps, Step{
			Kind: StepTool,
			Tool: "search_memory",
			Args: map[string]any{"owner_id": ownerID, "query": message},
		})
	}

	plan.Steps = append(plan.Steps, Step{Kind: StepRespond})
	return plan, nil
}

func goalFor(intent string) string {
	switch intent {
	case IntentProblemSolving:
		return "help the user work through their problem"
	case IntentInformationQuery:
		return "answer the user's question"
	case IntentBehaviorChange:
		return "support the user's intended change"
	default:
		return "offer emotional support and keep the conversation going"
	}
}
