package agistream

import (
	"context"
	"sync"

	"github.com/kadirpekel/agiloop/agievent"
)

// Tee fans a single producer out to multiple subscribers. It is kept
// outside the core Channel per spec §9 — most runs have exactly one
// consumer, and multi-subscriber fan-out is an opt-in wrapper, not a
// default cost every run pays.
type Tee struct {
	mu          sync.Mutex
	subscribers []chan agievent.Event
}

func NewTee() *Tee { return &Tee{} }

// Subscribe registers a new receive-only channel and returns it.
func (t *Tee) Subscribe(bufferSize int) <-chan agievent.Event {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ch := make(chan agievent.Event, bufferSize)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()
	return ch
}

// Send implements agiloop.Sink, fanning ev out to every subscriber.
func (t *Tee) Send(ctx context.Context, ev agievent.Event) error {
	t.mu.Lock()
	subs := append([]chan agievent.Event{}, t.subscribers...)
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close closes every subscriber channel.
func (t *Tee) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
}
