// Package protocol defines the typed message envelope exchanged between
// pipeline stages, its validation rules, and the append-only trace log.
package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of envelope.
type MessageType string

const (
	TypeUserInput           MessageType = "user_input"
	TypePlannerOutput       MessageType = "planner_output"
	TypeToolRequest         MessageType = "tool_request"
	TypeToolResponse        MessageType = "tool_response"
	TypeAgentResponse       MessageType = "agent_response"
	TypeReflectorEvaluation MessageType = "reflector_evaluation"
	TypeInternal            MessageType = "internal"
)

// Module tags name the sender/receiver of an envelope.
const (
	ModuleUser         = "user"
	ModuleOrchestrator = "orchestrator"
	ModulePlanner      = "planner"
	ModuleToolCaller   = "tool_caller"
	ModuleReflector    = "reflector"
)

// CorrelationKey is the metadata key carrying the per-run correlation id.
const CorrelationKey = "correlation_id"

// ToolCall is a request to invoke an external capability.
type ToolCall struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params,omitempty"`
	IssuedAt time.Time      `json:"issued_at"`
}

// ToolResult is the outcome of a tool call, keyed back by CallID.
type ToolResult struct {
	CallID  string        `json:"call_id"`
	Success bool          `json:"success"`
	Output  string        `json:"output,omitempty"`
	Err     string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Context carries the structured situation a message was produced in.
type Context struct {
	Profile       string            `json:"profile,omitempty"`
	Emotion       string            `json:"emotion,omitempty"`
	Goal          string            `json:"goal,omitempty"`
	MemorySummary string            `json:"memory_summary,omitempty"`
	History       []string          `json:"history,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Message is the immutable envelope used for all inter-stage communication.
type Message struct {
	ID          string            `json:"id"`
	Type        MessageType       `json:"type"`
	Content     string            `json:"content"`
	Context     Context           `json:"context"`
	ToolCalls   []ToolCall        `json:"tool_calls,omitempty"`
	ToolResults []ToolResult      `json:"tool_results,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Source      string            `json:"source"`
	Target      string            `json:"target"`
	Metadata    map[string]string `json:"metadata"`
}

func newMessage(t MessageType, content, source, target string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Content:   content,
		Timestamp: time.Now(),
		Source:    source,
		Target:    target,
		Metadata:  make(map[string]string),
	}
}

// NewUserInput wraps a raw user turn addressed to the orchestrator.
func NewUserInput(content string) *Message {
	return newMessage(TypeUserInput, content, ModuleUser, ModuleOrchestrator)
}

// NewPlannerOutput wraps a plan addressed to the tool caller.
func NewPlannerOutput(content string, calls []ToolCall) *Message {
	m := newMessage(TypePlannerOutput, content, ModulePlanner, ModuleToolCaller)
	m.ToolCalls = calls
	return m
}

// NewToolRequest wraps pending tool calls from the orchestrator.
func NewToolRequest(content string, calls []ToolCall) *Message {
	m := newMessage(TypeToolRequest, content, ModuleOrchestrator, ModuleToolCaller)
	m.ToolCalls = calls
	return m
}

// NewToolResponse wraps tool results addressed back to the orchestrator.
func NewToolResponse(content string, results []ToolResult) *Message {
	m := newMessage(TypeToolResponse, content, ModuleToolCaller, ModuleOrchestrator)
	m.ToolResults = results
	return m
}

// NewAgentResponse wraps the generated reply addressed to the user.
func NewAgentResponse(content string) *Message {
	return newMessage(TypeAgentResponse, content, ModuleOrchestrator, ModuleUser)
}

// NewReflectorEvaluation wraps a reflection result for the orchestrator.
func NewReflectorEvaluation(content string) *Message {
	return newMessage(TypeReflectorEvaluation, content, ModuleReflector, ModuleOrchestrator)
}

// NewInternal wraps an intra-orchestrator note (stage transitions, errors).
func NewInternal(content string) *Message {
	return newMessage(TypeInternal, content, ModuleOrchestrator, ModuleOrchestrator)
}

// WithCorrelation tags the message with a run correlation id and returns it.
func (m *Message) WithCorrelation(id string) *Message {
	m.Metadata[CorrelationKey] = id
	return m
}

// WithContext attaches structured context and returns the message.
func (m *Message) WithContext(c Context) *Message {
	m.Context = c
	return m
}

// ValidationError describes a malformed message.
type ValidationError struct {
	MessageID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message %s: %s", e.MessageID, e.Reason)
}

// Validate enforces envelope invariants: content must be non-empty, and
// every tool result must reference a tool call present on this message or
// among the ancestor calls supplied by the caller.
func (m *Message) Validate(ancestorCalls ...ToolCall) error {
	if m.Content == "" {
		return &ValidationError{MessageID: m.ID, Reason: "empty content"}
	}
	if len(m.ToolResults) == 0 {
		return nil
	}
	known := make(map[string]bool, len(m.ToolCalls)+len(ancestorCalls))
	for _, c := range m.ToolCalls {
		known[c.ID] = true
	}
	for _, c := range ancestorCalls {
		known[c.ID] = true
	}
	for _, r := range m.ToolResults {
		if !known[r.CallID] {
			return &ValidationError{
				MessageID: m.ID,
				Reason:    fmt.Sprintf("tool result references unknown call %q", r.CallID),
			}
		}
	}
	return nil
}
