package agillm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kadirpekel/agiloop/agimsg"
)

// ErrNonTransient wraps failures auto-recovery must never retry:
// authentication failures and malformed requests.
var ErrNonTransient = errors.New("agillm: non-transient failure")

// ParseError is returned by a Port when a provider's response could not
// be parsed into tool calls or text, so AutoRecovery knows to attempt
// exactly one repair retry.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("agillm: parse response: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// TransientError marks a failure (network failure with no HTTP status,
// rate limit, 5xx) as safe to retry with backoff. RetryAfter, when set from a provider's rate-limit headers,
// overrides the computed backoff interval for the next attempt.
type TransientError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("agillm: transient failure (status %d): %v", e.StatusCode, e.Err)
}
func (e *TransientError) Unwrap() error { return e.Err }

func isTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode == 0 || te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= 500
	}
	return false
}

// AutoRecovery wraps a Port with exactly one parse-repair retry (per
// spec §4.2) and exponential backoff on transient failures, up to a
// fixed ceiling of attempts.
type AutoRecovery struct {
	next        Port
	maxAttempts uint
}

// NewAutoRecovery builds an AutoRecovery decorator. maxAttempts bounds
// the number of calls made to next for one request under transient
// failures, the first call included (so at most maxAttempts-1 retries);
// a value of 0 or below means 3.
func NewAutoRecovery(next Port, maxAttempts int) *AutoRecovery {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &AutoRecovery{next: next, maxAttempts: uint(maxAttempts)}
}

func (a *AutoRecovery) Generate(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
	resp, err := a.generateWithBackoff(ctx, messages, tools)
	if err == nil {
		return resp, nil
	}

	var perr *ParseError
	if errors.As(err, &perr) {
		repaired := append(append([]agimsg.Message{}, messages...), agimsg.NewSystemMessage(
			fmt.Sprintf("Your previous response could not be parsed: %v. The raw response was:\n%s\nReturn a corrected response.", perr.Err, perr.Raw),
		))
		return a.generateWithBackoff(ctx, repaired, tools)
	}

	return nil, err
}

func (a *AutoRecovery) generateWithBackoff(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
	op := func() (*Response, error) {
		resp, err := a.next.Generate(ctx, messages, tools)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrNonTransient) || !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		var te *TransientError
		if errors.As(err, &te) && te.RetryAfter > 0 {
			return nil, backoff.RetryAfter(int(te.RetryAfter.Seconds()))
		}
		return nil, err
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(a.maxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("agillm: generate: %w", err)
	}
	return resp, nil
}
