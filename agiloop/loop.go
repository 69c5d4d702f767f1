// Package agiloop implements the step-based LLM/tool scheduler (spec
// §4.5), grounded on reasoning/default.go and
// pkg/reasoning/chain_of_thought_strategy.go's step-loop shape,
// collapsed from the teacher's pluggable-strategy design to the single
// reasoning protocol this spec names (see DESIGN.md's Open Question
// resolution).
package agiloop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kadirpekel/agiloop/agiauthz"
	"github.com/kadirpekel/agiloop/agievent"
	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agimemory"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/agitool"
)

// Sentinel termination errors. decideTermination ranks signals in the
// priority order spec §4.5 names: an assistant_done tool call beats
// finish_reason=stop beats MaxStepsReached beats LoopDetection beats any
// other fatal error.
var (
	ErrMaxStepsReached = errors.New("agiloop: max steps reached")
	ErrLoopDetected    = errors.New("agiloop: repeated identical thought detected")
)

// terminationSignal is how one step reports back what decideTermination
// needs to rank.
type terminationSignal struct {
	assistantDone bool
	finishStop    bool
}

// decideTermination applies the priority order independently of the
// step loop's control flow, so the order itself stays testable (spec
// property S4): assistant_done > finish_reason=stop > MaxStepsReached >
// LoopDetection > none.
func decideTermination(sig terminationSignal, maxStepsReached, loopDetected bool) error {
	switch {
	case sig.assistantDone:
		return nil
	case sig.finishStop:
		return nil
	case maxStepsReached:
		return ErrMaxStepsReached
	case loopDetected:
		return ErrLoopDetected
	default:
		return errContinue
	}
}

// errContinue is an internal-only sentinel meaning "no terminal signal
// fired this step, keep looping" — never returned from Run.
var errContinue = errors.New("agiloop: continue")

// Sink receives every event a run emits. agistream.Channel implements
// this; agiloop never imports agistream directly so the loop stays
// transport-agnostic.
type Sink interface {
	Send(ctx context.Context, ev agievent.Event) error
}

// Config bounds one Loop's behavior.
type Config struct {
	MaxSteps            int
	LoopDetectionWindow  int
}

// Loop drives a single run end to end.
type Loop struct {
	llm       agillm.Port
	memory    agimemory.Strategy
	tools     *agitool.Registry
	guardrail agiauthz.Guardrail
	cfg       Config
}

func New(llm agillm.Port, memory agimemory.Strategy, tools *agitool.Registry, guardrail agiauthz.Guardrail, cfg Config) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 25
	}
	if cfg.LoopDetectionWindow <= 0 {
		cfg.LoopDetectionWindow = 3
	}
	return &Loop{llm: llm, memory: memory, tools: tools, guardrail: guardrail, cfg: cfg}
}

// Run executes one run, streaming every event to sink, and returns the
// terminal error (nil on a clean finish).
func (l *Loop) Run(ctx context.Context, in agimsg.RunAgentInput, sink Sink) error {
	if err := sink.Send(ctx, agievent.RunStarted(in.RunID, in.ThreadID)); err != nil {
		return err
	}

	for _, m := range in.Messages {
		if err := l.memory.Add(ctx, m); err != nil {
			sink.Send(ctx, agievent.RunError(in.RunID, err.Error()))
			return err
		}
	}

	recentThoughts := make([]string, 0, l.cfg.LoopDetectionWindow)

	for step := 1; step <= l.cfg.MaxSteps; step++ {
		stepID := fmt.Sprintf("%s-step-%d", in.RunID, step)
		sink.Send(ctx, agievent.StepStarted(in.RunID, stepID))

		resp, err := l.llm.Generate(ctx, l.memory.ContextView(), l.toolMetadata())
		if err != nil {
			sink.Send(ctx, agievent.RunError(in.RunID, err.Error()))
			return err
		}

		sig := terminationSignal{
			assistantDone: containsDone(resp),
			finishStop:    resp.FinishReason == "stop",
		}
		loopDetected := false

		if resp.Content != nil {
			if err := l.emitText(ctx, in.RunID, *resp.Content, sink); err != nil {
				return err
			}
			if err := l.memory.Add(ctx, agimsg.NewAssistantText(*resp.Content)); err != nil {
				sink.Send(ctx, agievent.RunError(in.RunID, err.Error()))
				return err
			}

			thoughtHash := hashThought(*resp.Content)
			loopDetected = detectLoop(recentThoughts, thoughtHash, l.cfg.LoopDetectionWindow)
			recentThoughts = append(recentThoughts, thoughtHash)
		}

		if len(resp.ToolCalls) > 0 {
			if err := l.memory.Add(ctx, agimsg.NewAssistantToolCalls(resp.ToolCalls)); err != nil {
				sink.Send(ctx, agievent.RunError(in.RunID, err.Error()))
				return err
			}
			for _, tc := range resp.ToolCalls {
				if tc.Name == "assistant_done" {
					continue
				}
				if err := l.dispatch(ctx, in.RunID, tc, sink); err != nil {
					sink.Send(ctx, agievent.RunError(in.RunID, err.Error()))
					return err
				}
			}
		}

		sink.Send(ctx, agievent.StepFinished(in.RunID, stepID))

		maxStepsReached := step == l.cfg.MaxSteps
		switch term := decideTermination(sig, maxStepsReached, loopDetected); term {
		case nil:
			sink.Send(ctx, agievent.RunFinished(in.RunID))
			return nil
		case errContinue:
			continue
		default:
			sink.Send(ctx, agievent.RunError(in.RunID, term.Error()))
			return term
		}
	}

	// Unreachable: the MaxSteps branch of decideTermination always fires
	// on the final loop iteration above.
	return ErrMaxStepsReached
}

func (l *Loop) toolMetadata() []agillm.ToolMetadata {
	tools := l.tools.List()
	out := make([]agillm.ToolMetadata, 0, len(tools))
	for _, t := range tools {
		out = append(out, agillm.ToolMetadata{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return out
}

func (l *Loop) emitText(ctx context.Context, runID, content string, sink Sink) error {
	start := agievent.TextMessageStart(runID)
	if err := sink.Send(ctx, start); err != nil {
		return err
	}
	if err := sink.Send(ctx, agievent.TextMessageContent(runID, start.MessageID, content)); err != nil {
		return err
	}
	return sink.Send(ctx, agievent.TextMessageEnd(runID, start.MessageID))
}

func (l *Loop) dispatch(ctx context.Context, runID string, tc agimsg.ToolCall, sink Sink) error {
	sink.Send(ctx, agievent.ToolCallStart(runID, tc.ID, tc.Name))

	tool, err := l.tools.Get(tc.Name)
	if err != nil {
		sink.Send(ctx, agievent.ToolCallEnd(runID, tc.ID))
		sink.Send(ctx, agievent.ToolCallResult(runID, tc.ID, err.Error(), true))
		return l.memory.Add(ctx, agimsg.NewToolResult(tc.ID, tc.Name, err.Error()))
	}

	if err := agitool.ValidateArguments(tool.InputSchema(), tc.Arguments); err != nil {
		sink.Send(ctx, agievent.ToolCallEnd(runID, tc.ID))
		sink.Send(ctx, agievent.ToolCallResult(runID, tc.ID, err.Error(), true))
		return l.memory.Add(ctx, agimsg.NewToolResult(tc.ID, tc.Name, err.Error()))
	}

	args := tc.Arguments
	if l.guardrail != nil {
		if _, approvesAll := l.guardrail.(agiauthz.None); !approvesAll {
			sink.Send(ctx, agievent.AuthorizationRequested(runID, tc.ID, tc.Name, tc.Arguments))
		}
		decision, err := l.guardrail.Decide(ctx, agiauthz.Request{ToolCallID: tc.ID, ToolName: tc.Name, Arguments: tc.Arguments})
		if err != nil {
			return err
		}
		if !decision.Approved {
			sink.Send(ctx, agievent.ToolCallEnd(runID, tc.ID))
			sink.Send(ctx, agievent.ToolCallResult(runID, tc.ID, "denied: "+decision.Reason, true))
			return l.memory.Add(ctx, agimsg.NewToolResult(tc.ID, tc.Name, "denied: "+decision.Reason))
		}
		if decision.ModifiedArguments != nil {
			args = decision.ModifiedArguments
		}
	}

	result, err := tool.Execute(ctx, agitool.NewContext(tc.ID), args)
	sink.Send(ctx, agievent.ToolCallEnd(runID, tc.ID))
	if err != nil {
		sink.Send(ctx, agievent.ToolCallResult(runID, tc.ID, err.Error(), true))
		return l.memory.Add(ctx, agimsg.NewToolResult(tc.ID, tc.Name, err.Error()))
	}
	sink.Send(ctx, agievent.ToolCallResult(runID, tc.ID, result.Content, false))
	return l.memory.Add(ctx, agimsg.NewToolResult(tc.ID, tc.Name, result.Content))
}

func containsDone(resp *agillm.Response) bool {
	for _, tc := range resp.ToolCalls {
		if tc.Name == "assistant_done" {
			return true
		}
	}
	return false
}

func hashThought(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// detectLoop reports whether the last window thoughts — the window-1
// most recent entries in recent plus candidate — all hash to the same
// value (spec §4.5e). A window below 2 never fires: "the last 1
// thought repeats itself" isn't a repetition.
func detectLoop(recent []string, candidate string, window int) bool {
	if window < 2 {
		return false
	}
	if len(recent) < window-1 {
		return false
	}
	for _, h := range recent[len(recent)-(window-1):] {
		if h != candidate {
			return false
		}
	}
	return true
}
