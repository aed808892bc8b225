// Package orchestrator drives one user turn through the pipeline state
// machine: perception, memory retrieval, planning, tool execution, response
// generation, consolidation, reflection and follow-up scheduling.
package orchestrator

import (
	"time"

	"github.com/congde/emochat/internal/protocol"
)

// State names one stage of the pipeline. Stages run strictly in order;
// StateFallback and StateDone are terminal.
type State string

const (
	StatePerceive         State = "PERCEIVE"
	StateMemoryRetrieve   State = "MEMORY_RETRIEVE"
	StatePlan             State = "PLAN"
	StateExecute          State = "EXECUTE"
	StateRespond          State = "RESPOND"
	StateConsolidate      State = "CONSOLIDATE"
	StateReflect          State = "REFLECT"
	StateScheduleFollowup State = "SCHEDULE_FOLLOWUP"
	StateDone             State = "DONE"
	StateFallback         State = "FALLBACK_RESPONSE"
)

// Intent labels for rule-based classification.
const (
	IntentProblemSolving   = "problem_solving"
	IntentInformationQuery = "information_query"
	IntentBehaviorChange   = "behavior_change"
	IntentEmotionalSupport = "emotional_support"
)

// Perception is the output of the PERCEIVE stage.
type Perception struct {
	Emotion   string   `json:"emotion"`
	Intensity float64  `json:"intensity"`
	Intent    string   `json:"intent"`
	Entities  []string `json:"entities,omitempty"`
}

// StepKind distinguishes plan steps.
type StepKind string

const (
	StepTool    StepKind = "tool_call"
	StepRespond StepKind = "respond"
)

// Step is one unit of an execution plan.
type Step struct {
	Kind StepKind       `json:"kind"`
	Tool string         `json:"tool,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// Plan is what the planner hands to the executor. Steps run in declared
// order.
type Plan struct {
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`
}

// ActionResult records one executed tool step, failed or not.
type ActionResult struct {
	Call    protocol.ToolCall `json:"call"`
	Success bool              `json:"success"`
	Output  string            `json:"output,omitempty"`
	Err     string            `json:"error,omitempty"`
	Elapsed time.Duration     `json:"elapsed"`
}

// Metrics are the raw reflection measurements, each in [0, 1].
type Metrics struct {
	Satisfaction    float64 `json:"satisfaction"`
	LatencyScore    float64 `json:"latency_score"`
	GoalAchieved    float64 `json:"goal_achieved"`
	EmotionChange   float64 `json:"emotion_change"`
	ToolSuccessRate float64 `json:"tool_success_rate"`
}

// Outcome buckets a weighted reflection score.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomePartial Outcome = "PARTIAL"
	OutcomeUnknown Outcome = "UNKNOWN"
	OutcomeFailure Outcome = "FAILURE"
)

// Evaluation is the Reflector's verdict on one pipeline run.
type Evaluation struct {
	Metrics         Metrics  `json:"metrics"`
	Score           float64  `json:"score"`
	Outcome         Outcome  `json:"outcome"`
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// FollowUp is a proposed proactive future contact.
type FollowUp struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// InteractionRecord captures one full pipeline pass. Appended to the
// experience log and never mutated afterwards.
type InteractionRecord struct {
	CorrelationID string         `json:"correlation_id"`
	OwnerID       string         `json:"owner_id"`
	SessionID     string         `json:"session_id"`
	Message       string         `json:"message"`
	Perception    Perception     `json:"perception"`
	Plan          Plan           `json:"plan"`
	Actions       []ActionResult `json:"actions,omitempty"`
	Reply         string         `json:"reply"`
	Latency       time.Duration  `json:"latency"`
	FinalState    State          `json:"final_state"`
	Evaluation    *Evaluation    `json:"evaluation,omitempty"`
	FollowUp      *FollowUp      `json:"follow_up,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
