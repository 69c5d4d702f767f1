package agillm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agimsg"
)

func TestAutoRecoveryRetriesParseErrorOnce(t *testing.T) {
	calls := 0
	inner := PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, &ParseError{Raw: "garbage", Err: errors.New("bad json")}
		}
		text := "recovered"
		return &Response{Content: &text}, nil
	})

	ar := NewAutoRecovery(inner, 3)
	resp, err := ar.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", *resp.Content)
	require.Equal(t, 2, calls)
}

func TestAutoRecoveryDoesNotRetryNonTransient(t *testing.T) {
	calls := 0
	inner := PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
		calls++
		return nil, ErrNonTransient
	})

	ar := NewAutoRecovery(inner, 3)
	_, err := ar.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestAutoRecoveryRetriesTransientWithBackoff(t *testing.T) {
	calls := 0
	inner := PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
		calls++
		if calls < 3 {
			return nil, &TransientError{StatusCode: 503, Err: errors.New("unavailable")}
		}
		text := "ok"
		return &Response{Content: &text}, nil
	})

	ar := NewAutoRecovery(inner, 5)
	resp, err := ar.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", *resp.Content)
}

func TestAutoRecoveryHonorsRetryAfterHint(t *testing.T) {
	calls := 0
	inner := PortFunc(func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, &TransientError{StatusCode: 429, RetryAfter: time.Millisecond, Err: errors.New("rate limited")}
		}
		text := "ok"
		return &Response{Content: &text}, nil
	})

	ar := NewAutoRecovery(inner, 3)
	resp, err := ar.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", *resp.Content)
	require.Equal(t, 2, calls)
}
