package httpclient

import "time"

// RateLimitInfo contains rate limit information extracted from a
// provider's response headers, ported from pkg/httpclient/client.go.
type RateLimitInfo struct {
	RetryAfter            time.Duration
	ResetTime             int64
	RequestsRemaining     int
	InputTokensRemaining  int
	OutputTokensRemaining int
	TokensRemaining       int
}
