package agievent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Encode writes a single SSE frame for ev: an `event:` line naming its
// Kind, one or more `data:` lines carrying its JSON body, and a
// terminating blank line.
func Encode(w io.Writer, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("agievent: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Kind); err != nil {
		return err
	}
	for _, line := range strings.Split(string(body), "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(w, "\n")
	return err
}

// Decoder reads a stream of SSE frames and reconstructs Events,
// tolerant of CRLF line endings and multi-line data fields.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Next returns the next decoded Event, or io.EOF when the stream ends.
func (d *Decoder) Next() (Event, error) {
	var eventName string
	var dataLines []string
	sawAny := false

	for d.scanner.Scan() {
		line := strings.TrimRight(d.scanner.Text(), "\r")
		if line == "" {
			if sawAny {
				break
			}
			continue
		}
		sawAny = true
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("agievent: scan: %w", err)
	}
	if !sawAny {
		return Event{}, io.EOF
	}

	var ev Event
	if len(dataLines) > 0 {
		payload := strings.Join(dataLines, "\n")
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return Custom("", eventName, payload), nil
		}
	}
	if ev.Kind == "" {
		switch k := Kind(eventName); k {
		case KindRunStarted, KindRunFinished, KindRunError, KindStepStarted, KindStepFinished,
			KindTextMessageStart, KindTextMessageContent, KindTextMessageChunk, KindTextMessageEnd,
			KindToolCallStart, KindToolCallArgs, KindToolCallEnd, KindToolCallResult,
			KindStateSnapshot, KindStateDelta, KindCustom:
			ev.Kind = k
		default:
			// Unrecognized discriminator: pass it through as a Custom event
			// named after it, carrying the decoded data as its value.
			var value any
			_ = json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &value)
			return Custom("", eventName, value), nil
		}
	}
	return ev, nil
}
