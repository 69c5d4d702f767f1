// Package agievent defines the wire event model that a reasoning run
// streams to its subscriber, plus the line protocol used to serialize
// it over Server-Sent Events.
package agievent

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates an Event's payload. The string values are the
// literal `event:` discriminators placed on the wire.
type Kind string

const (
	KindRunStarted               Kind = "RUN_STARTED"
	KindRunFinished              Kind = "RUN_FINISHED"
	KindRunError                 Kind = "RUN_ERROR"
	KindStepStarted              Kind = "STEP_STARTED"
	KindStepFinished             Kind = "STEP_FINISHED"
	KindTextMessageStart         Kind = "TEXT_MESSAGE_START"
	KindTextMessageContent       Kind = "TEXT_MESSAGE_CONTENT"
	KindTextMessageChunk         Kind = "TEXT_MESSAGE_CHUNK"
	KindTextMessageEnd           Kind = "TEXT_MESSAGE_END"
	KindToolCallStart            Kind = "TOOL_CALL_START"
	KindToolCallArgs             Kind = "TOOL_CALL_ARGS"
	KindToolCallEnd              Kind = "TOOL_CALL_END"
	KindToolCallResult           Kind = "TOOL_CALL_RESULT"
	KindStateSnapshot            Kind = "STATE_SNAPSHOT"
	KindStateDelta               Kind = "STATE_DELTA"
	KindAuthorizationRequested   Kind = "CUSTOM"
	KindCustom                   Kind = "CUSTOM"
)

// Event is the single wire type for every event a run emits. Only the
// fields relevant to Kind are populated; this mirrors the discriminated
// payload shape the line protocol needs rather than a sum type, which Go
// does not have natively.
type Event struct {
	Kind      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`

	// RunStarted / RunFinished / RunError
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`

	// TextMessage*
	MessageID string `json:"message_id,omitempty"`
	Delta     string `json:"delta,omitempty"`

	// ToolCall*
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ArgsDelta  string `json:"args_delta,omitempty"`
	Result     string `json:"result,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`

	// State*
	State any `json:"state,omitempty"`
	Patch any `json:"patch,omitempty"`

	// Custom (and AuthorizationRequested, which rides on Custom per
	// SPEC_FULL.md §1)
	Name  string `json:"name,omitempty"`
	Value any    `json:"value,omitempty"`
}

func now() time.Time { return timeNowFunc() }

// timeNowFunc is indirected so tests can freeze time without reaching
// for a wall-clock dependency in assertions.
var timeNowFunc = time.Now

func newID() string { return uuid.NewString() }

func RunStarted(runID, threadID string) Event {
	return Event{Kind: KindRunStarted, Timestamp: now(), RunID: runID, ThreadID: threadID}
}

func RunFinished(runID string) Event {
	return Event{Kind: KindRunFinished, Timestamp: now(), RunID: runID}
}

func RunError(runID, errMsg string) Event {
	return Event{Kind: KindRunError, Timestamp: now(), RunID: runID, Error: errMsg}
}

func StepStarted(runID, stepID string) Event {
	return Event{Kind: KindStepStarted, Timestamp: now(), RunID: runID, StepID: stepID}
}

func StepFinished(runID, stepID string) Event {
	return Event{Kind: KindStepFinished, Timestamp: now(), RunID: runID, StepID: stepID}
}

func TextMessageStart(runID string) Event {
	return Event{Kind: KindTextMessageStart, Timestamp: now(), RunID: runID, MessageID: newID()}
}

func TextMessageContent(runID, messageID, delta string) Event {
	return Event{Kind: KindTextMessageContent, Timestamp: now(), RunID: runID, MessageID: messageID, Delta: delta}
}

// TextMessageChunk is the defensive variant used only by producers that
// cannot guarantee a TextMessageEnd is reachable before cancellation.
func TextMessageChunk(runID, messageID, delta string) Event {
	return Event{Kind: KindTextMessageChunk, Timestamp: now(), RunID: runID, MessageID: messageID, Delta: delta}
}

func TextMessageEnd(runID, messageID string) Event {
	return Event{Kind: KindTextMessageEnd, Timestamp: now(), RunID: runID, MessageID: messageID}
}

func ToolCallStart(runID, toolCallID, toolName string) Event {
	return Event{Kind: KindToolCallStart, Timestamp: now(), RunID: runID, ToolCallID: toolCallID, ToolName: toolName}
}

func ToolCallArgs(runID, toolCallID, argsDelta string) Event {
	return Event{Kind: KindToolCallArgs, Timestamp: now(), RunID: runID, ToolCallID: toolCallID, ArgsDelta: argsDelta}
}

func ToolCallEnd(runID, toolCallID string) Event {
	return Event{Kind: KindToolCallEnd, Timestamp: now(), RunID: runID, ToolCallID: toolCallID}
}

func ToolCallResult(runID, toolCallID, result string, isError bool) Event {
	return Event{Kind: KindToolCallResult, Timestamp: now(), RunID: runID, ToolCallID: toolCallID, Result: result, IsError: isError}
}

func StateSnapshot(runID string, state any) Event {
	return Event{Kind: KindStateSnapshot, Timestamp: now(), RunID: runID, State: state}
}

func StateDelta(runID string, patch any) Event {
	return Event{Kind: KindStateDelta, Timestamp: now(), RunID: runID, Patch: patch}
}

func Custom(runID, name string, value any) Event {
	return Event{Kind: KindCustom, Timestamp: now(), RunID: runID, Name: name, Value: value}
}

// AuthorizationRequested is emitted by the reasoning loop when it asks a
// guardrail other than agiauthz.None for a decision on a tool call. It rides the Custom event
// discriminator with a fixed Name so generic consumers never need a
// dedicated case.
func AuthorizationRequested(runID, toolCallID, toolName string, arguments map[string]any) Event {
	return Custom(runID, "AUTHORIZATION_REQUESTED", map[string]any{
		"tool_call_id": toolCallID,
		"tool_name":    toolName,
		"arguments":    arguments,
	})
}
