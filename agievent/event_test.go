package agievent

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineProtocolRoundTrip(t *testing.T) {
	events := []Event{
		RunStarted("run-1", "thread-1"),
		StepStarted("run-1", "step-1"),
		TextMessageStart("run-1"),
		TextMessageContent("run-1", "msg-1", "hello"),
		ToolCallStart("run-1", "tc-1", "search"),
		ToolCallResult("run-1", "tc-1", "ok", false),
		StepFinished("run-1", "step-1"),
		RunFinished("run-1"),
	}

	var buf bytes.Buffer
	for _, ev := range events {
		require.NoError(t, Encode(&buf, ev))
	}

	dec := NewDecoder(&buf)
	var got []Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, ev)
	}

	require.Len(t, got, len(events))
	for i := range events {
		require.Equal(t, events[i].Kind, got[i].Kind)
		require.Equal(t, events[i].RunID, got[i].RunID)
	}
}

func TestDecoderUnknownDiscriminatorBecomesCustom(t *testing.T) {
	raw := "event: SOME_UNKNOWN_KIND\ndata: {\"foo\":\"bar\"}\n\n"
	dec := NewDecoder(bytes.NewBufferString(raw))
	ev, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, KindCustom, ev.Kind)
	require.Equal(t, "SOME_UNKNOWN_KIND", ev.Name)
}

func TestAuthorizationRequestedRidesCustom(t *testing.T) {
	ev := AuthorizationRequested("run-1", "tc-9", "delete_file", map[string]any{"path": "/tmp/x"})
	require.Equal(t, KindCustom, ev.Kind)
	require.Equal(t, "AUTHORIZATION_REQUESTED", ev.Name)
}
