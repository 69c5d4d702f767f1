package agimemory

import (
	"context"
	"sync"

	"github.com/kadirpekel/agiloop/agimsg"
)

// SlidingWindow retains the most recent N messages, evicting from the
// front on overflow, then filters stray Tool messages that lose their
// originating Assistant tool-call when presented as context — grounded
// verbatim on original_source/memory/sliding_window.rs's
// get_context algorithm: find the last Assistant message carrying
// tool_calls, drop any Tool message before it (its pair was already
// evicted), and keep everything from that index onward intact.
type SlidingWindow struct {
	mu       sync.Mutex
	maxSize  int
	messages []agimsg.Message
}

func NewSlidingWindow(maxSize int) *SlidingWindow {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &SlidingWindow{maxSize: maxSize}
}

func (s *SlidingWindow) Add(ctx context.Context, m agimsg.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	for len(s.messages) > s.maxSize {
		s.messages = s.messages[1:]
	}
	return nil
}

func (s *SlidingWindow) ContextView() []agimsg.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastToolCallIdx := -1
	for i, m := range s.messages {
		if m.Role == agimsg.RoleAssistant && len(m.ToolCalls) > 0 {
			lastToolCallIdx = i
		}
	}
	if lastToolCallIdx == -1 {
		out := make([]agimsg.Message, len(s.messages))
		copy(out, s.messages)
		return out
	}

	var out []agimsg.Message
	for i := 0; i < lastToolCallIdx; i++ {
		if s.messages[i].Role == agimsg.RoleTool {
			continue
		}
		out = append(out, s.messages[i])
	}
	out = append(out, s.messages[lastToolCallIdx:]...)
	return out
}

func (s *SlidingWindow) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{MessageCount: len(s.messages), ByKind: countByKind(s.messages)}
}

func (s *SlidingWindow) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

var _ Strategy = (*SlidingWindow)(nil)
