package agillm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agimsg"
)

func TestHTTPPortParsesRetryAfterOnTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	port := newHTTPPort(ProviderConfig{Provider: ProviderOpenAI, APIKey: "test"}, srv.URL, openAIRequestBody, parseOpenAIResponse)

	_, err := port.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.Error(t, err)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	require.Equal(t, 2e9, float64(te.RetryAfter))
}

func TestHTTPPortTreats5xxAsTransientWithoutRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	port := newHTTPPort(ProviderConfig{Provider: ProviderOpenAI, APIKey: "test"}, srv.URL, openAIRequestBody, parseOpenAIResponse)

	_, err := port.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.Error(t, err)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusInternalServerError, te.StatusCode)
	require.Zero(t, te.RetryAfter)
}

func TestHTTPPortParsesAnthropicRetryAfterHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("retry-after", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	port := newHTTPPort(ProviderConfig{Provider: ProviderAnthropic, APIKey: "test", AnthropicVersion: "2023-06-01"}, srv.URL, anthropicRequestBody, parseAnthropicResponse)

	_, err := port.Generate(context.Background(), []agimsg.Message{agimsg.NewUserMessage("hi")}, nil)
	require.Error(t, err)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 5e9, float64(te.RetryAfter))
}
