package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ctxbundle "github.com/congde/emochat/internal/context"
	"github.com/congde/emochat/internal/emotion"
	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/protocol"
	"github.com/congde/emochat/internal/provider"
	"github.com/congde/emochat/internal/shortterm"
	"github.com/congde/emochat/internal/tools"
)

// FallbackReply is the templated apology emitted when generation fails.
const FallbackReply = "抱歉，我这会儿有点走神了，可以再说一遍吗？我很想听你讲。"

// MemoryBank is the long-term memory surface the pipeline depends on.
// *memory.Store satisfies it.
type MemoryBank interface {
	Save(ctx context.Context, rec *memory.Record) error
	Retrieve(ctx context.Context, opts memory.RetrieveOptions) ([]memory.Hit, error)
	RecentByOwner(ctx context.Context, ownerID string, limit int) ([]*memory.Record, error)
}

// HistoryStore reads and appends conversation turns.
type HistoryStore interface {
	AppendTurn(ctx context.Context, sessionID string, t shortterm.Turn) (int, error)
	GetTurns(ctx context.Context, sessionID string, limit int) ([]shortterm.Turn, error)
}

// FollowUpSink receives scheduled follow-up proposals.
type FollowUpSink interface {
	Schedule(ctx context.Context, f *FollowUp) error
}

// BundleAssembler builds the per-request context bundle.
type BundleAssembler interface {
	Assemble(ctx context.Context, ownerID, sessionID, message string,
		history []shortterm.Turn, emotionLabel string, intensity float64,
		opts ctxbundle.AssembleOptions) (*ctxbundle.Bundle, error)
}

// Deps wires the pipeline's collaborators. All references are held
// explicitly; there are no package-level singletons.
type Deps struct {
	Emotion    emotion.Analyzer
	Memory     MemoryBank
	Assembler  BundleAssembler
	Planner    Planner
	Tools      *tools.Registry
	Generator  provider.Generator
	History    HistoryStore
	FollowUps  FollowUpSink // optional
	Trace      *protocol.TraceLog
	Reflector  *Reflector
	Experience *ExperienceLog
	Logger     *zap.Logger

	Preamble string // system preamble for prompt construction
}

// Pipeline runs one user turn at a time through the stage sequence.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// NewPipeline creates a pipeline from its dependencies.
func NewPipeline(deps Deps) *Pipeline {
	if deps.Reflector == nil {
		deps.Reflector = NewReflector(DefaultReflectWeights())
	}
	if deps.Experience == nil {
		deps.Experience = NewExperienceLog(DefaultExperienceCap)
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Result is what one pipeline run hands back to the transport layer.
type Result struct {
	Reply         string      `json:"reply"`
	CorrelationID string      `json:"correlation_id"`
	FinalState    State       `json:"final_state"`
	Emotion       string      `json:"emotion"`
	Intensity     float64     `json:"intensity"`
	Evaluation    *Evaluation `json:"evaluation,omitempty"`
	FollowUp      *FollowUp   `json:"follow_up,omitempty"`
}

// Run drives one user message through every stage. Every call yields some
// reply; internal errors degrade the run or trigger the fallback response,
// they never surface as raw failures.
func (p *Pipeline) Run(ctx context.Context, ownerID, sessionID, message string) (*Result, error) {
	correlationID := uuid.New().String()
	start := p.now()
	log := p.deps.Logger.With(
		zap.String("correlation_id", correlationID),
		zap.String("owner", ownerID))

	rec := &InteractionRecord{
		CorrelationID: correlationID,
		OwnerID:       ownerID,
		SessionID:     sessionID,
		Message:       message,
		CreatedAt:     start,
	}

	in := protocol.NewUserInput(message).WithCorrelation(correlationID)
	if err := p.deps.Trace.Log(in); err != nil {
		// Empty input fails envelope validation before any tool runs.
		log.Warn("input rejected", zap.Error(err))
		return p.fallback(ctx, rec, start, "invalid input")
	}

	// PERCEIVE
	perception, _ := Perceive(ctx, p.deps.Emotion, message)
	rec.Perception = perception
	log.Debug("perceived",
		zap.String("emotion", perception.Emotion),
		zap.Float64("intensity", perception.Intensity),
		zap.String("intent", perception.Intent))

	// MEMORY_RETRIEVE feeds the assembler; an unreachable store degrades
	// the bundle instead of failing the run (handled inside Assemble).
	history, err := p.deps.History.GetTurns(ctx, sessionID, 50)
	if err != nil {
		log.Warn("history unavailable, continuing without", zap.Error(err))
	}
	// History still ends at the previous exchange here; the current turns
	// are persisted after the reply, so the last timestamp is the owner's
	// true last interaction.
	lastInteraction := start
	if len(history) > 0 {
		lastInteraction = history[len(history)-1].Timestamp
	}

	assembleOpts := ctxbundle.AssembleOptions{}
	// Strong feelings bias retrieval toward memories carrying the same
	// emotion; mild ones keep retrieval emotion-agnostic.
	if perception.Intensity >= 7 {
		assembleOpts.Emotion = perception.Emotion
	}
	bundle, err := p.deps.Assembler.Assemble(ctx, ownerID, sessionID, message,
		history, perception.Emotion, perception.Intensity, assembleOpts)
	if err != nil {
		log.Warn("assembly failed, continuing with bare bundle", zap.Error(err))
		bundle = &ctxbundle.Bundle{OwnerID: ownerID, SessionID: sessionID, Message: message}
	}

	// PLAN
	plan, err := p.deps.Planner.Plan(ctx, ownerID, message, perception)
	if err != nil {
		log.Warn("planning failed, responding directly", zap.Error(err))
		plan = Plan{Goal: goalFor(perception.Intent), Steps: []Step{{Kind: StepRespond}}}
	}
	rec.Plan = plan
	planJSON, _ := json.Marshal(plan)
	p.deps.Trace.Log(protocol.NewPlannerOutput(string(planJSON), nil).WithCorrelation(correlationID))

	// EXECUTE
	actions := executeSteps(ctx, p.deps.Tools, plan, log)
	rec.Actions = actions
	if len(actions) > 0 {
		calls, results := toolResults(actions)
		p.deps.Trace.Log(protocol.NewToolRequest("tool calls issued", calls).WithCorrelation(correlationID))
		p.deps.Trace.Log(
			protocol.NewToolResponse("tool calls completed", results).WithCorrelation(correlationID),
			calls...)
		for _, a := range actions {
			if a.Success {
				bundle.ToolPayloads = append(bundle.ToolPayloads, ctxbundle.ToolPayload{
					Name:      a.Call.Name,
					Content:   a.Output,
					CreatedAt: a.Call.IssuedAt,
				})
			}
		}
	}

	// RESPOND
	prompt := ctxbundle.BuildPrompt(bundle, p.deps.Preamble)
	reply, err := p.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		return p.fallback(ctx, rec, start, err.Error())
	}
	rec.Reply = reply
	p.deps.Trace.Log(protocol.NewAgentResponse(reply).WithCorrelation(correlationID))

	// Side effects past this point commit independently; a cancellation
	// between stages leaves earlier effects in place.
	p.persistTurns(ctx, sessionID, message, reply, perception, log)

	// CONSOLIDATE
	if candidate := BuildCandidate(ownerID, sessionID, message, "user", perception); candidate != nil {
		if err := p.deps.Memory.Save(ctx, candidate); err != nil {
			log.Warn("consolidation failed", zap.Error(err))
		} else {
			log.Debug("memory consolidated",
				zap.String("type", string(candidate.Type)),
				zap.Float64("importance", candidate.Importance))
		}
	}

	// REFLECT
	rec.Latency = p.now().Sub(start)
	rec.FinalState = StateDone
	rec.Evaluation = p.deps.Reflector.Evaluate(rec)
	evalJSON, _ := json.Marshal(rec.Evaluation)
	p.deps.Trace.Log(protocol.NewReflectorEvaluation(string(evalJSON)).WithCorrelation(correlationID))

	// SCHEDULE_FOLLOWUP
	rec.FollowUp = p.scheduleFollowUp(ctx, ownerID, sessionID, lastInteraction, log)

	p.deps.Experience.Append(rec)

	log.Info("pipeline done",
		zap.Duration("latency", rec.Latency),
		zap.String("outcome", string(rec.Evaluation.Outcome)))
	return &Result{
		Reply:         reply,
		CorrelationID: correlationID,
		FinalState:    StateDone,
		Emotion:       perception.Emotion,
		Intensity:     perception.Intensity,
		Evaluation:    rec.Evaluation,
		FollowUp:      rec.FollowUp,
	}, nil
}

// fallback is the terminal error path: a safe templated reply, a trace
// entry, and an experience record marking the miss. No retry happens here.
func (p *Pipeline) fallback(ctx context.Context, rec *InteractionRecord, start time.Time, reason string) (*Result, error) {
	rec.Reply = FallbackReply
	rec.Latency = p.now().Sub(start)
	rec.FinalState = StateFallback
	rec.Evaluation = p.deps.Reflector.Evaluate(rec)

	note := protocol.NewInternal(fmt.Sprintf("fallback response: %s", reason)).
		WithCorrelation(rec.CorrelationID)
	p.deps.Trace.Log(note)
	p.deps.Trace.Log(protocol.NewAgentResponse(FallbackReply).WithCorrelation(rec.CorrelationID))
	p.deps.Experience.Append(rec)

	p.persistTurns(ctx, rec.SessionID, rec.Message, FallbackReply, rec.Perception, p.deps.Logger)
	return &Result{
		Reply:         FallbackReply,
		CorrelationID: rec.CorrelationID,
		FinalState:    StateFallback,
		Emotion:       rec.Perception.Emotion,
		Intensity:     rec.Perception.Intensity,
		Evaluation:    rec.Evaluation,
	}, nil
}

func (p *Pipeline) persistTurns(ctx context.Context, sessionID, message, reply string, perception Perception, log *zap.Logger) {
	if strings.TrimSpace(message) != "" {
		if _, err := p.deps.History.AppendTurn(ctx, sessionID, shortterm.Turn{
			Role: "user", Content: message,
			Emotion: perception.Emotion, Intensity: perception.Intensity,
			Timestamp: p.now(),
		}); err != nil {
			log.Warn("persist user turn failed", zap.Error(err))
		}
	}
	if _, err := p.deps.History.AppendTurn(ctx, sessionID, shortterm.Turn{
		Role: "assistant", Content: reply, Timestamp: p.now(),
	}); err != nil {
		log.Warn("persist assistant turn failed", zap.Error(err))
	}
}

func (p *Pipeline) scheduleFollowUp(ctx context.Context, ownerID, sessionID string, lastInteraction time.Time, log *zap.Logger) *FollowUp {
	recent, err := p.deps.Memory.RecentByOwner(ctx, ownerID, 20)
	if err != nil {
		if !errors.Is(err, memory.ErrStoreUnavailable) {
			log.Warn("follow-up scan failed", zap.Error(err))
		}
		return nil
	}
	f := ProposeFollowUp(ownerID, sessionID, recent, lastInteraction, p.now())
	if f == nil {
		return nil
	}
	if p.deps.FollowUps != nil {
		if err := p.deps.FollowUps.Schedule(ctx, f); err != nil {
			log.Warn("follow-up scheduling failed", zap.Error(err))
			return nil
		}
	}
	log.Info("follow-up proposed",
		zap.String("kind", f.Kind), zap.Time("due", f.DueAt))
	return f
}
