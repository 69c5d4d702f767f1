package agimemory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agimsg"
)

func TestSummaryBufferDrainsIntoSummaryWhenOverBudget(t *testing.T) {
	sb := NewSummaryBuffer(40, "not-a-real-model", fakeSummarizer("folded"))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, sb.Add(ctx, agimsg.NewUserMessage(strings.Repeat("x", 20))))
	}

	view := sb.ContextView()
	require.Equal(t, agimsg.RoleSystem, view[0].Role)
	require.Equal(t, "folded", view[0].Content)
	require.Less(t, len(view)-1, 20)
}

func TestSummaryBufferClearIsIdempotent(t *testing.T) {
	sb := NewSummaryBuffer(40, "not-a-real-model", fakeSummarizer("s"))
	sb.Clear()
	sb.Clear()
	require.Empty(t, sb.ContextView())
}
