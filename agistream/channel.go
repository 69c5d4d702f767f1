// Package agistream implements the streaming transport a run's events
// travel over: a bounded single-producer channel plus an SSE adapter
// for HTTP consumers (spec §4.6).
package agistream

import (
	"context"
	"fmt"

	"github.com/kadirpekel/agiloop/agievent"
)

// DefaultBufferSize bounds the channel so a slow consumer applies back
// pressure to the loop rather than the loop buffering unboundedly.
const DefaultBufferSize = 64

// Channel is a bounded, single-producer event stream. The loop owns the
// send half exclusively — it is never cloned — per spec §9's design
// note on producer ownership.
type Channel struct {
	events chan agievent.Event
}

func NewChannel(bufferSize int) *Channel {
	if bufferSize < 0 {
		bufferSize = DefaultBufferSize
	}
	return &Channel{events: make(chan agievent.Event, bufferSize)}
}

// Send implements agiloop.Sink.
func (c *Channel) Send(ctx context.Context, ev agievent.Event) error {
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("agistream: send canceled: %w", ctx.Err())
	}
}

// Close signals no further events will be sent. Only the owning
// producer may call this.
func (c *Channel) Close() { close(c.events) }

// Events returns the consumer-facing receive end.
func (c *Channel) Events() <-chan agievent.Event { return c.events }
