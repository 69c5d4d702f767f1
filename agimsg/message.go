// Package agimsg defines the message, tool-call, and run-input types
// shared by the LLM port, memory policies, and reasoning loop.
package agimsg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is the simple wire shape an Assistant message carries when it
// requests tool execution. SPEC_FULL.md §1 resolves the Open Question on
// nested vs. simple shapes in favor of this one.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Usage carries token accounting from a single LLM call. This is
// supplemental telemetry (not part of the distilled spec) carried on
// agillm.Response; the reasoning loop does not emit it as an event.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is the universal unit conversation memory stores and the LLM
// port exchanges.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

var (
	ErrAssistantAmbiguous = errors.New("agimsg: assistant message must carry exactly one of content or tool_calls")
	ErrToolMissingCallID  = errors.New("agimsg: tool message must carry tool_call_id")
)

// Validate enforces the invariants named in spec §3: an Assistant
// message carries exactly one of content/tool_calls, and a Tool message
// always carries its originating tool_call_id.
func (m Message) Validate() error {
	switch m.Role {
	case RoleAssistant:
		hasContent := m.Content != ""
		hasCalls := len(m.ToolCalls) > 0
		if hasContent == hasCalls {
			return fmt.Errorf("%w: content=%q tool_calls=%d", ErrAssistantAmbiguous, m.Content, len(m.ToolCalls))
		}
	case RoleTool:
		if m.ToolCallID == "" {
			return ErrToolMissingCallID
		}
	}
	return nil
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewAssistantText(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func NewAssistantToolCalls(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

func NewToolResult(toolCallID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Name: name, Content: content}
}

// Observation is the recorded outcome of executing one tool call during
// a reasoning step.
type Observation struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// HistoryStepKind tags which variant of spec §3's audit-trail tagged
// union a HistoryStep carries.
type HistoryStepKind string

const (
	HistoryUserTask      HistoryStepKind = "user_task"
	HistoryThought       HistoryStepKind = "thought"
	HistoryAction        HistoryStepKind = "action"
	HistoryObservation   HistoryStepKind = "observation"
	HistoryLLMError      HistoryStepKind = "llm_error"
	HistoryToolError     HistoryStepKind = "tool_error"
	HistoryExecutorError HistoryStepKind = "executor_error"
)

// HistoryStep is one entry of a run's structured audit trail, retained
// in full by the agent-history memory policy — a tagged union over
// {UserTask, Thought, Action, Observation, LLMError, ToolError,
// ExecutorError} (spec §3). Only the field matching Kind is populated;
// the three error variants carry Error, letting a failed run's trace
// distinguish an LLM failure from a tool failure from an executor
// failure.
type HistoryStep struct {
	StepNumber  int             `json:"step_number"`
	Kind        HistoryStepKind `json:"kind"`
	Task        string          `json:"task,omitempty"`
	Thought     string          `json:"thought,omitempty"`
	Action      *ToolCall       `json:"action,omitempty"`
	Observation *Observation    `json:"observation,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func NewUserTaskStep(stepNumber int, task string) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryUserTask, Task: task}
}

func NewThoughtStep(stepNumber int, thought string) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryThought, Thought: thought}
}

func NewActionStep(stepNumber int, call ToolCall) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryAction, Action: &call}
}

func NewObservationStep(stepNumber int, obs Observation) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryObservation, Observation: &obs}
}

func NewLLMErrorStep(stepNumber int, message string) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryLLMError, Error: message}
}

func NewToolErrorStep(stepNumber int, message string) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryToolError, Error: message}
}

func NewExecutorErrorStep(stepNumber int, message string) HistoryStep {
	return HistoryStep{StepNumber: stepNumber, Kind: HistoryExecutorError, Error: message}
}

// RunInputTool is one boot-time tool registration carried on the wire
// (spec §6 tools[] = {name, ...}).
type RunInputTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ContextItem is one opaque, client-supplied context entry (spec §3's
// RunAgentInput.context) carried through to the LLM call unchanged.
type ContextItem struct {
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
}

// RunAgentInput is the request body for starting a run (spec §3, §6).
// State and ForwardedProps are opaque, caller-defined JSON this spec
// never interprets — they round-trip through Go's encoding/json as
// raw values rather than be unmarshalled into a shape this module
// would have to guess at.
type RunAgentInput struct {
	ThreadID       string          `json:"thread_id"`
	RunID          string          `json:"run_id"`
	Messages       []Message       `json:"messages"`
	Tools          []RunInputTool  `json:"tools,omitempty"`
	Context        []ContextItem   `json:"context,omitempty"`
	State          json.RawMessage `json:"state,omitempty"`
	ForwardedProps json.RawMessage `json:"forwarded_props,omitempty"`
}

// NewRunAgentInput fills in a fresh RunID when the caller leaves one
// unset, matching the teacher's id-generation idiom throughout
// pkg/agui.
func NewRunAgentInput(threadID string, messages []Message) RunAgentInput {
	return RunAgentInput{
		ThreadID: threadID,
		RunID:    uuid.NewString(),
		Messages: messages,
	}
}
