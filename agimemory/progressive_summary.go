package agimemory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agimsg"
)

// conversationSummaryPrompt is ported from original_source's
// CONVERSATION_SUMMARY_PROMPT constant.
const conversationSummaryPrompt = `Progressively summarize the conversation below, adding onto the previous summary and returning a new summary.

Current summary:
%s

New lines of conversation:
%s

New summary:`

// ProgressiveSummary folds every new message into a single evolving
// summary via one LLM call per Add, grounded on
// original_source/memory/conversation_summary.rs. It takes its own
// Port handle as a constructor argument and calls it directly, so
// summarization calls never recurse back through this strategy (spec §9
// Design Notes on re-entrancy).
type ProgressiveSummary struct {
	mu      sync.Mutex
	llm     agillm.Port
	summary string
	steps   int
}

func NewProgressiveSummary(summarizer agillm.Port) *ProgressiveSummary {
	return &ProgressiveSummary{llm: summarizer}
}

func (p *ProgressiveSummary) Add(ctx context.Context, m agimsg.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	newLines := fmt.Sprintf("%s: %s", m.Role, m.Content)
	prompt := fmt.Sprintf(conversationSummaryPrompt, p.summary, newLines)

	resp, err := p.llm.Generate(ctx, []agimsg.Message{agimsg.NewSystemMessage(prompt)}, nil)
	if err != nil {
		return fmt.Errorf("agimemory: summarize: %w", err)
	}
	if resp.Content != nil {
		p.summary = *resp.Content
	}
	p.steps++
	return nil
}

func (p *ProgressiveSummary) ContextView() []agimsg.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summary == "" {
		return nil
	}
	return []agimsg.Message{agimsg.NewSystemMessage(p.summary)}
}

func (p *ProgressiveSummary) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	words := 0
	if p.summary != "" {
		words = len(strings.Fields(p.summary))
	}
	return Stats{MessageCount: p.steps, TokenCount: words}
}

func (p *ProgressiveSummary) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = ""
	p.steps = 0
}

var _ Strategy = (*ProgressiveSummary)(nil)
