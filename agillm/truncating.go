package agillm

import (
	"context"

	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/internal/tokencount"
)

// Truncating wraps a Port and trims the outgoing message list to fit a
// token budget before delegating. It always keeps a leading System
// message and everything from the last Assistant tool-call message
// onward, then fills what is left of the budget with the most recent
// earlier messages, always keeping the last of them. No completion
// reserve is subtracted from the budget, the latest user turn is kept
// only when it falls among the messages kept this way, and the result
// can exceed the budget when the kept messages alone do. The
// pair-preserving scan is grounded on v2/memory/buffer_window.go's
// tool-call-pairing logic, generalized here over a plain message slice.
type Truncating struct {
	next   Port
	budget int
	counter *tokencount.Counter
}

// NewTruncating builds a Truncating decorator with a token budget and a
// counter tuned to model.
func NewTruncating(next Port, budget int, model string) *Truncating {
	return &Truncating{next: next, budget: budget, counter: tokencount.New(model)}
}

func (t *Truncating) Generate(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
	return t.next.Generate(ctx, t.fit(messages), tools)
}

func (t *Truncating) fit(messages []agimsg.Message) []agimsg.Message {
	if len(messages) == 0 {
		return messages
	}

	var system []agimsg.Message
	rest := messages
	if messages[0].Role == agimsg.RoleSystem {
		system = messages[:1]
		rest = messages[1:]
	}

	essentialFrom := lastOpenToolCallPair(rest)

	budget := t.budget - t.counter.CountMessages(system)
	if budget < 0 {
		budget = 0
	}

	var kept []agimsg.Message
	if essentialFrom < len(rest) {
		essential := rest[essentialFrom:]
		budget -= t.counter.CountMessages(essential)
		if budget < 0 {
			budget = 0
		}
		history := t.counter.FitWithinBudget(rest[:essentialFrom], budget)
		kept = append(kept, history...)
		kept = append(kept, essential...)
	} else {
		kept = t.counter.FitWithinBudget(rest, budget)
	}

	out := make([]agimsg.Message, 0, len(system)+len(kept))
	out = append(out, system...)
	out = append(out, kept...)
	return out
}

// lastOpenToolCallPair returns the index of the last Assistant message
// carrying tool_calls, whether or not trailing Tool messages have
// answered it, or len(messages) when there is none, so truncation never
// drops half of the latest call/response pair.
func lastOpenToolCallPair(messages []agimsg.Message) int {
	lastCallIdx := -1
	for i, m := range messages {
		if m.Role == agimsg.RoleAssistant && len(m.ToolCalls) > 0 {
			lastCallIdx = i
		}
	}
	if lastCallIdx == -1 {
		return len(messages)
	}
	return lastCallIdx
}
