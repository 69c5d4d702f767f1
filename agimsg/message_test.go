package agimsg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssistantMessageMustBeUnambiguous(t *testing.T) {
	require.NoError(t, NewAssistantText("hi").Validate())
	require.NoError(t, NewAssistantToolCalls([]ToolCall{{ID: "1", Name: "x"}}).Validate())

	empty := Message{Role: RoleAssistant}
	require.ErrorIs(t, empty.Validate(), ErrAssistantAmbiguous)

	both := Message{Role: RoleAssistant, Content: "hi", ToolCalls: []ToolCall{{ID: "1"}}}
	require.ErrorIs(t, both.Validate(), ErrAssistantAmbiguous)
}

func TestToolMessageRequiresCallID(t *testing.T) {
	require.NoError(t, NewToolResult("tc-1", "search", "result").Validate())
	require.ErrorIs(t, Message{Role: RoleTool}.Validate(), ErrToolMissingCallID)
}

func TestNewRunAgentInputGeneratesRunID(t *testing.T) {
	in := NewRunAgentInput("thread-1", []Message{NewUserMessage("hi")})
	require.NotEmpty(t, in.RunID)
	require.Equal(t, "thread-1", in.ThreadID)
}

func TestRunAgentInputRoundTripsOptionalWireFields(t *testing.T) {
	raw := []byte(`{
		"thread_id": "thread-1",
		"run_id": "run-1",
		"messages": [],
		"tools": [{"name": "search"}],
		"context": [{"description": "locale", "value": "en-US"}],
		"state": {"counter": 1},
		"forwarded_props": {"client": "cli"}
	}`)

	var in RunAgentInput
	require.NoError(t, json.Unmarshal(raw, &in))
	require.Equal(t, []RunInputTool{{Name: "search"}}, in.Tools)
	require.Equal(t, []ContextItem{{Description: "locale", Value: "en-US"}}, in.Context)
	require.JSONEq(t, `{"counter":1}`, string(in.State))
	require.JSONEq(t, `{"client":"cli"}`, string(in.ForwardedProps))
}

func TestHistoryStepConstructorsTagTheirVariant(t *testing.T) {
	require.Equal(t, HistoryUserTask, NewUserTaskStep(1, "do the thing").Kind)
	require.Equal(t, HistoryThought, NewThoughtStep(2, "thinking").Kind)

	action := NewActionStep(3, ToolCall{ID: "1", Name: "search"})
	require.Equal(t, HistoryAction, action.Kind)
	require.Equal(t, "search", action.Action.Name)

	obs := NewObservationStep(4, Observation{ToolCallID: "1", Content: "ok"})
	require.Equal(t, HistoryObservation, obs.Kind)
	require.Equal(t, "ok", obs.Observation.Content)

	require.Equal(t, HistoryLLMError, NewLLMErrorStep(5, "timeout").Kind)
	require.Equal(t, HistoryToolError, NewToolErrorStep(6, "denied").Kind)
	require.Equal(t, HistoryExecutorError, NewExecutorErrorStep(7, "panic").Kind)
}
