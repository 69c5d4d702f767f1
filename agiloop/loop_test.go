package agiloop

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agiauthz"
	"github.com/kadirpekel/agiloop/agievent"
	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agimemory"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/agitool"
)

type recordingSink struct {
	mu     sync.Mutex
	events []agievent.Event
}

func (s *recordingSink) Send(ctx context.Context, ev agievent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) kinds() []agievent.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agievent.Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func TestRunTerminatesOnFinishReasonStop(t *testing.T) {
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		text := "final answer"
		return &agillm.Response{Content: &text, FinishReason: "stop"}, nil
	})

	loop := New(llm, agimemory.NewSlidingWindow(20), agitool.NewRegistry(), agiauthz.None{}, Config{MaxSteps: 10})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	err := loop.Run(context.Background(), in, sink)
	require.NoError(t, err)

	kinds := sink.kinds()
	require.Equal(t, agievent.KindRunStarted, kinds[0])
	require.Equal(t, agievent.KindRunFinished, kinds[len(kinds)-1])
}

func TestRunTerminatesOnAssistantDoneEvenWithoutStopReason(t *testing.T) {
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		return &agillm.Response{ToolCalls: []agimsg.ToolCall{{ID: "1", Name: "assistant_done"}}, FinishReason: "tool_calls"}, nil
	})

	loop := New(llm, agimemory.NewSlidingWindow(20), agitool.NewRegistry(), agiauthz.None{}, Config{MaxSteps: 10})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	err := loop.Run(context.Background(), in, sink)
	require.NoError(t, err)
	require.Equal(t, agievent.KindRunFinished, sink.kinds()[len(sink.kinds())-1])
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		text := "still thinking"
		return &agillm.Response{Content: &text, FinishReason: "tool_calls"}, nil
	})

	loop := New(llm, agimemory.NewSlidingWindow(200), agitool.NewRegistry(), agiauthz.None{}, Config{MaxSteps: 3, LoopDetectionWindow: 1})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	err := loop.Run(context.Background(), in, sink)
	require.ErrorIs(t, err, ErrMaxStepsReached)
}

func TestDecideTerminationPriorityOrder(t *testing.T) {
	// assistant_done beats everything
	require.NoError(t, decideTermination(terminationSignal{assistantDone: true}, true, true))
	// finish_reason=stop beats MaxSteps/Loop
	require.NoError(t, decideTermination(terminationSignal{finishStop: true}, true, true))
	// MaxSteps beats LoopDetection
	require.ErrorIs(t, decideTermination(terminationSignal{}, true, true), ErrMaxStepsReached)
	// LoopDetection fires last
	require.ErrorIs(t, decideTermination(terminationSignal{}, false, true), ErrLoopDetected)
	// nothing fires -> continue
	require.ErrorIs(t, decideTermination(terminationSignal{}, false, false), errContinue)
}

type countingTool struct{ calls int }

func (c *countingTool) Name() string                { return "counter" }
func (c *countingTool) Description() string         { return "counts calls" }
func (c *countingTool) InputSchema() map[string]any { return nil }
func (c *countingTool) Execute(ctx context.Context, toolCtx agitool.Context, args map[string]any) (*agitool.Result, error) {
	c.calls++
	return &agitool.Result{Content: "ok"}, nil
}

func TestDetectLoopRequiresWindowMutuallyIdenticalThoughts(t *testing.T) {
	// window=3: only the 3rd identical thought in a row fires, not the 2nd.
	require.False(t, detectLoop(nil, "a", 3))
	require.False(t, detectLoop([]string{"a"}, "a", 3))
	require.True(t, detectLoop([]string{"a", "a"}, "a", 3))
	require.False(t, detectLoop([]string{"x", "a"}, "a", 3))

	// window<2 never fires.
	require.False(t, detectLoop([]string{"a"}, "a", 1))
	require.False(t, detectLoop([]string{"a", "a", "a"}, "a", 1))
}

func TestGuardrailIsConsultedForEveryToolCallRegardlessOfApprovalRequirer(t *testing.T) {
	step := 0
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		step++
		if step == 1 {
			return &agillm.Response{ToolCalls: []agimsg.ToolCall{{ID: "1", Name: "counter"}}, FinishReason: "tool_calls"}, nil
		}
		text := "done"
		return &agillm.Response{Content: &text, FinishReason: "stop"}, nil
	})

	registry := agitool.NewRegistry()
	tool := &countingTool{}
	require.NoError(t, registry.Register(tool))

	loop := New(llm, agimemory.NewSlidingWindow(20), registry, agiauthz.AlwaysDeny{}, Config{MaxSteps: 10})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	require.NoError(t, loop.Run(context.Background(), in, sink))
	require.Equal(t, 0, tool.calls)
	require.Contains(t, sink.kinds(), agievent.KindAuthorizationRequested)
}

type argEchoTool struct{ seen map[string]any }

func (a *argEchoTool) Name() string                { return "echo" }
func (a *argEchoTool) Description() string         { return "echoes its arguments" }
func (a *argEchoTool) InputSchema() map[string]any { return nil }
func (a *argEchoTool) Execute(ctx context.Context, toolCtx agitool.Context, args map[string]any) (*agitool.Result, error) {
	a.seen = args
	return &agitool.Result{Content: "ok"}, nil
}

type modifyingGuardrail struct{ args map[string]any }

func (g modifyingGuardrail) Decide(ctx context.Context, req agiauthz.Request) (agiauthz.Decision, error) {
	return agiauthz.Decision{Approved: true, ModifiedArguments: g.args}, nil
}

func TestDispatchExecutesWithGuardrailModifiedArguments(t *testing.T) {
	step := 0
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		step++
		if step == 1 {
			return &agillm.Response{ToolCalls: []agimsg.ToolCall{{ID: "1", Name: "echo", Arguments: map[string]any{"path": "/etc/passwd"}}}, FinishReason: "tool_calls"}, nil
		}
		text := "done"
		return &agillm.Response{Content: &text, FinishReason: "stop"}, nil
	})

	registry := agitool.NewRegistry()
	tool := &argEchoTool{}
	require.NoError(t, registry.Register(tool))

	modified := map[string]any{"path": "/sandbox/file.txt"}
	loop := New(llm, agimemory.NewSlidingWindow(20), registry, modifyingGuardrail{args: modified}, Config{MaxSteps: 10})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	require.NoError(t, loop.Run(context.Background(), in, sink))
	require.Equal(t, modified, tool.seen)
}

func TestRunExecutesRequestedRegisteredTool(t *testing.T) {
	step := 0
	llm := agillm.PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []agillm.ToolMetadata) (*agillm.Response, error) {
		step++
		if step == 1 {
			return &agillm.Response{ToolCalls: []agimsg.ToolCall{{ID: "1", Name: "counter"}}, FinishReason: "tool_calls"}, nil
		}
		text := "done"
		return &agillm.Response{Content: &text, FinishReason: "stop"}, nil
	})

	registry := agitool.NewRegistry()
	tool := &countingTool{}
	require.NoError(t, registry.Register(tool))

	loop := New(llm, agimemory.NewSlidingWindow(20), registry, agiauthz.None{}, Config{MaxSteps: 10})
	sink := &recordingSink{}
	in := agimsg.NewRunAgentInput("thread-1", []agimsg.Message{agimsg.NewUserMessage("hi")})

	require.NoError(t, loop.Run(context.Background(), in, sink))
	require.Equal(t, 1, tool.calls)
}
