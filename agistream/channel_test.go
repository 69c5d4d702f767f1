package agistream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agievent"
)

func TestChannelSendAndReceive(t *testing.T) {
	ch := NewChannel(4)
	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, agievent.RunStarted("r1", "t1")))
	ch.Close()

	ev := <-ch.Events()
	require.Equal(t, agievent.KindRunStarted, ev.Kind)
}

func TestChannelSendRespectsCancellation(t *testing.T) {
	ch := NewChannel(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := ch.Send(ctx, agievent.RunStarted("r1", "t1"))
	require.Error(t, err)
}

func TestTeeFansOutToAllSubscribers(t *testing.T) {
	tee := NewTee()
	a := tee.Subscribe(4)
	b := tee.Subscribe(4)

	require.NoError(t, tee.Send(context.Background(), agievent.RunStarted("r1", "t1")))
	tee.Close()

	evA := <-a
	evB := <-b
	require.Equal(t, agievent.KindRunStarted, evA.Kind)
	require.Equal(t, agievent.KindRunStarted, evB.Kind)
}
