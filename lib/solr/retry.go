package solr

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// maxBackoff caps the sleep between two attempts
	maxBackoff = 120 * time.Second
)

// retryStatuses are the only statuses that are retried
var retryStatuses = map[int]bool{
	http.StatusRequestEntityTooLarge: true, // 413
	http.StatusTooManyRequests:       true, // 429
	http.StatusBadGateway:            true, // 502
	http.StatusServiceUnavailable:    true, // 503
	http.StatusGatewayTimeout:        true, // 504
}

// retryMethods are the methods for which a received response may be retried
var retryMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodPost: true,
}

// retryAfterStatuses are the statuses for which a Retry-After header is respected
var retryAfterStatuses = map[int]bool{
	http.StatusRequestEntityTooLarge: true,
	http.StatusTooManyRequests:       true,
	http.StatusServiceUnavailable:    true,
}

// retryPolicy decides whether a failed attempt is retried and how long to wait before
type retryPolicy struct {
	total         int
	backoffFactor float64
}

func newRetryPolicy(config ClientConfig) retryPolicy {
	return retryPolicy{
		total:         config.RetryTotal,
		backoffFactor: config.RetryBackoffFactor,
	}
}

// shouldRetry reports whether the outcome of attempt number `attempt` (starting at 0)
// allows another attempt
func (p retryPolicy) shouldRetry(method string, attempt int, o outcome) bool {
	if attempt >= p.total {
		return false
	}
	switch o.class {
	case classTransient:
		return retryMethods[method]
	case classConnection:
		// nothing was sent if the dial failed, so every method is safe to retry
		return o.dialFailed || retryMethods[method]
	case classUnexpected:
		// read timeouts and similar errors, the request might have been processed
		return o.status == 0 && retryMethods[method]
	default:
		return false
	}
}

// backoff returns the sleep before the retry number `retry` (starting at 1).
// The first retry happens immediately, afterwards the sleep grows with
// factor * 2^(retry-1) seconds.
func (p retryPolicy) backoff(retry int) time.Duration {
	if retry <= 1 || p.backoffFactor <= 0 {
		return 0
	}
	seconds := p.backoffFactor * math.Pow(2, float64(retry-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff || d < 0 {
		return maxBackoff
	}
	return d
}

// wait returns the sleep before the retry number `retry` for the given outcome.
// A Retry-After header of an overload response takes precedence over the backoff.
func (p retryPolicy) wait(retry int, o outcome) time.Duration {
	if retryAfterStatuses[o.status] {
		if d, ok := parseRetryAfter(o.header.Get("Retry-After"), time.Now()); ok {
			return d
		}
	}
	return p.backoff(retry)
}

// parseRetryAfter parses the value of a Retry-After header (seconds or http date)
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return min(time.Duration(seconds)*time.Second, maxBackoff), true
	}
	if date, err := http.ParseTime(value); err == nil {
		d := date.Sub(now)
		if d < 0 {
			d = 0
		}
		return min(d, maxBackoff), true
	}
	return 0, false
}

// sleepContext sleeps for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
