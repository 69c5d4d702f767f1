package agistream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kadirpekel/agiloop/agievent"
)

// WriteSSE drains events to w as they arrive, flushing after each one
// so the HTTP client sees them without buffering delay — grounded on
// the text/event-stream handlers in pkg/a2a/server.go and
// pkg/tools/mcp.go.
func WriteSSE(ctx context.Context, w http.ResponseWriter, events <-chan agievent.Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("agistream: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := agievent.Encode(w, ev); err != nil {
				return err
			}
			flusher.Flush()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
