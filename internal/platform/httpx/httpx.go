// Package httpx holds small helpers for retrying outbound HTTP calls.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by errors that carry an HTTP status code.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus reports whether a response status is worth retrying:
// request timeout, rate limiting, or any server-side failure.
func IsRetryableHTTPStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout:
		return true
	case code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether err looks transient. Context expiry and
// network timeouts retry; anything else is treated as permanent unless the
// error exposes a retryable HTTP status.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// RetryAfterDuration picks a sleep interval from the Retry-After header when
// present, otherwise the fallback, capped at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	d := fallback
	if hinted, ok := retryAfterHint(resp); ok {
		d = hinted
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// retryAfterHint reads the integer-seconds form of Retry-After. The HTTP-date
// form is not sent by the backends this package talks to.
func retryAfterHint(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// JitterSleep spreads a base backoff by +/-20% so concurrent retries do not
// hit the upstream in lockstep.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	factor := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(base) * factor)
}
