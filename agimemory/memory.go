// Package agimemory implements the conversation memory trait and its
// four retention policies (spec §4.3).
package agimemory

import (
	"context"

	"github.com/kadirpekel/agiloop/agimsg"
)

// Stats reports a policy's current retention state.
type Stats struct {
	MessageCount int
	TokenCount   int
	ByKind       map[string]int
}

// Strategy is the conversation memory trait every policy implements.
type Strategy interface {
	Add(ctx context.Context, m agimsg.Message) error
	ContextView() []agimsg.Message
	Stats() Stats
	Clear()
}

func countByKind(msgs []agimsg.Message) map[string]int {
	out := map[string]int{}
	for _, m := range msgs {
		out[string(m.Role)]++
	}
	return out
}
