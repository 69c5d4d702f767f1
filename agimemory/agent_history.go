package agimemory

import (
	"context"
	"sync"

	"github.com/kadirpekel/agiloop/agimsg"
)

// HistoryPersister saves a run's structured trace, implemented by
// internal/checkpoint. AgentHistory is functional without one (an
// in-memory-only audit trail), and persists through it when supplied.
type HistoryPersister interface {
	SaveStep(ctx context.Context, threadID string, step agimsg.HistoryStep) error
}

// AgentHistory never drops a message while a run is in progress: it is
// the full audit-trail policy, grounded on original_source's
// trace.rs (AgentStep/AgentExecution) and v2/session/store.go's
// event-row persistence pattern. Unlike the other three policies it
// also accumulates a structured HistoryStep trace via AddStep.
type AgentHistory struct {
	mu         sync.Mutex
	threadID   string
	messages   []agimsg.Message
	steps      []agimsg.HistoryStep
	persister  HistoryPersister
}

func NewAgentHistory(threadID string, persister HistoryPersister) *AgentHistory {
	return &AgentHistory{threadID: threadID, persister: persister}
}

func (h *AgentHistory) Add(ctx context.Context, m agimsg.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.messages = append(h.messages, m)
	h.mu.Unlock()
	return nil
}

// AddStep records one reasoning step into the structured trace, and
// persists it immediately if a HistoryPersister is configured so a
// crashed process can resume the thread's audit trail.
func (h *AgentHistory) AddStep(ctx context.Context, step agimsg.HistoryStep) error {
	h.mu.Lock()
	h.steps = append(h.steps, step)
	persister := h.persister
	threadID := h.threadID
	h.mu.Unlock()

	if persister != nil {
		return persister.SaveStep(ctx, threadID, step)
	}
	return nil
}

func (h *AgentHistory) Steps() []agimsg.HistoryStep {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]agimsg.HistoryStep, len(h.steps))
	copy(out, h.steps)
	return out
}

func (h *AgentHistory) ContextView() []agimsg.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]agimsg.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *AgentHistory) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{MessageCount: len(h.messages), ByKind: countByKind(h.messages)}
}

func (h *AgentHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
	h.steps = nil
}

var _ Strategy = (*AgentHistory)(nil)
