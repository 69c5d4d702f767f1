package agimemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/internal/tokencount"
)

// SummaryBuffer hybridizes a token-budgeted rolling window with an
// evolving summary of whatever gets evicted from it — grounded on
// v2/memory/token_window.go's budget-fitting window combined with
// conversation_summary.rs's fold-into-summary step for anything the
// window can no longer hold. Summarization uses a distinct Port handle
// per the same re-entrancy guard as ProgressiveSummary.
type SummaryBuffer struct {
	mu        sync.Mutex
	tokenCap  int
	counter   *tokencount.Counter
	llm       agillm.Port
	window    []agimsg.Message
	summary   string
}

func NewSummaryBuffer(tokenCap int, model string, summarizer agillm.Port) *SummaryBuffer {
	if tokenCap <= 0 {
		tokenCap = 2000
	}
	return &SummaryBuffer{tokenCap: tokenCap, counter: tokencount.New(model), llm: summarizer}
}

func (b *SummaryBuffer) Add(ctx context.Context, m agimsg.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.window = append(b.window, m)
	fitted := b.counter.FitWithinBudget(b.window, b.tokenCap)
	drained := b.window[:len(b.window)-len(fitted)]
	b.window = fitted
	if len(drained) == 0 {
		return nil
	}

	var lines string
	for _, d := range drained {
		lines += fmt.Sprintf("%s: %s\n", d.Role, d.Content)
	}
	prompt := fmt.Sprintf(conversationSummaryPrompt, b.summary, lines)
	resp, err := b.llm.Generate(ctx, []agimsg.Message{agimsg.NewSystemMessage(prompt)}, nil)
	if err != nil {
		return fmt.Errorf("agimemory: summarize drained window: %w", err)
	}
	if resp.Content != nil {
		b.summary = *resp.Content
	}
	return nil
}

func (b *SummaryBuffer) ContextView() []agimsg.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []agimsg.Message
	if b.summary != "" {
		out = append(out, agimsg.NewSystemMessage(b.summary))
	}
	out = append(out, b.window...)
	return out
}

func (b *SummaryBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		MessageCount: len(b.window),
		TokenCount:   b.counter.CountMessages(b.window),
		ByKind:       countByKind(b.window),
	}
}

func (b *SummaryBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = nil
	b.summary = ""
}

var _ Strategy = (*SummaryBuffer)(nil)
