// Package tokencount estimates token counts for context-budget
// decisions made by the LLM truncation decorator and the token-aware
// memory policies.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kadirpekel/agiloop/agimsg"
)

// charsPerTokenFallback is the heuristic used when no tiktoken encoding
// is available for a model, matching the estimate original_source's
// llm/summarizer.rs uses (content.len()/4).
const charsPerTokenFallback = 4

// Counter estimates the token cost of messages, preferring a real
// tiktoken-go encoding and falling back to the 4-chars-per-token
// heuristic when the model's encoding can't be resolved.
type Counter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// New builds a Counter for model. An unrecognized model name is not an
// error: the Counter silently falls back to the heuristic.
func New(model string) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}
	return &Counter{enc: enc}
}

// Count estimates the token length of s.
func (c *Counter) Count(s string) int {
	if s == "" {
		return 0
	}
	c.mu.Lock()
	enc := c.enc
	c.mu.Unlock()
	if enc != nil {
		return len(enc.Encode(s, nil, nil))
	}
	n := len(s) / charsPerTokenFallback
	if n == 0 {
		n = 1
	}
	return n
}

// CountMessage estimates the token cost of a single message, including
// a small per-message overhead for role/name/tool-call framing.
func (c *Counter) CountMessage(m agimsg.Message) int {
	n := c.Count(m.Content) + 4
	for _, tc := range m.ToolCalls {
		n += c.Count(tc.Name) + 8
		for k, v := range tc.Arguments {
			n += c.Count(k)
			if s, ok := v.(string); ok {
				n += c.Count(s)
			} else {
				n += 2
			}
		}
	}
	return n
}

// CountMessages sums CountMessage over msgs.
func (c *Counter) CountMessages(msgs []agimsg.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total
}

// FitWithinBudget walks msgs from the end backwards, keeping as many as
// fit within budget tokens. It always keeps the last message even if it
// alone exceeds budget, so callers never get an empty context.
func (c *Counter) FitWithinBudget(msgs []agimsg.Message, budget int) []agimsg.Message {
	if len(msgs) == 0 {
		return msgs
	}
	used := 0
	cut := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := c.CountMessage(msgs[i])
		if used+cost > budget && i != len(msgs)-1 {
			break
		}
		used += cost
		cut = i
	}
	return msgs[cut:]
}
