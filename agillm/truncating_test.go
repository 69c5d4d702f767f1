package agillm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agimsg"
)

func TestTruncatingPreservesSystemAndUnresolvedToolPair(t *testing.T) {
	var captured []agimsg.Message
	inner := PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
		captured = messages
		text := "ok"
		return &Response{Content: &text}, nil
	})

	var msgs []agimsg.Message
	msgs = append(msgs, agimsg.NewSystemMessage("be helpful"))
	for i := 0; i < 40; i++ {
		msgs = append(msgs, agimsg.NewUserMessage(strings.Repeat("filler ", 50)))
	}
	msgs = append(msgs, agimsg.NewAssistantToolCalls([]agimsg.ToolCall{{ID: "tc-1", Name: "search"}}))

	trunc := NewTruncating(inner, 200, "not-a-real-model")
	_, err := trunc.Generate(context.Background(), msgs, nil)
	require.NoError(t, err)

	require.Equal(t, agimsg.RoleSystem, captured[0].Role)
	last := captured[len(captured)-1]
	require.Equal(t, agimsg.RoleAssistant, last.Role)
	require.Len(t, last.ToolCalls, 1)
	require.Less(t, len(captured), len(msgs))
}
