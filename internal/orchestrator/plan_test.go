package orchestrator

import (
	"context"
	"testing"

	"github.com/congde/emochat/internal/tools"
)

func registryWithStubs(names ...string) *tools.Registry {
	reg := tools.NewRegistry()
	for _, name := range names {
		reg.Register(tools.Definition{Name: name}, func(context.Context, map[string]any) (string, error) {
			return "{}", nil
		})
	}
	return reg
}

func TestPlanAlwaysEndsWithRespond(t *testing.T) {
	p := NewRulePlanner(registryWithStubs())
	plan, err := p.Plan(context.Background(), "u1", "hi", Perception{Intent: IntentEmotionalSupport})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != StepRespond {
		t.Errorf("steps = %+v, want single respond", plan.Steps)
	}
	if plan.Goal == "" {
		t.Error("empty goal")
	}
}

func TestPlanAddsTimeToolForEntities(t *testing.T) {
	p := NewRulePlanner(registryWithStubs("get_current_time"))
	plan, err := p.Plan(context.Background(), "u1", "明天面试",
		Perception{Intent: IntentEmotionalSupport, Entities: []string{"明天", "面试"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("steps = %+v", plan.Steps)
	}
	if plan.Steps[0].Tool != "get_current_time" || plan.Steps[1].Kind != StepRespond {
		t.Errorf("unexpected plan: %+v", plan.Steps)
	}
}

func TestPlanAddsMemorySearchForQueries(t *testing.T) {
	p := NewRulePlanner(registryWithStubs("search_memory"))
	plan, err := p.Plan(context.Background(), "u1", "what did I say about running?",
		Perception{Intent: IntentInformationQuery})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 2 || plan.Steps[0].Tool != "search_memory" {
		t.Fatalf("unexpected plan: %+v", plan.Steps)
	}
	if plan.Steps[0].Args["owner_id"] != "u1" {
		t.Errorf("args = %v", plan.Steps[0].Args)
	}
}

func TestPlanSkipsUnregisteredTools(t *testing.T) {
	p := NewRulePlanner(registryWithStubs())
	plan, err := p.Plan(context.Background(), "u1", "what time is it?",
		Perception{Intent: IntentInformationQuery, Entities: []string{"today"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 1 {
		t.Errorf("unregistered tools should not be planned: %+v", plan.Steps)
	}
}
