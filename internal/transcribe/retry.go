package transcribe

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const maxRetryAfter = 30 * time.Second

// RetryPolicy bounds transcription attempts. After failed attempt n
// (1-based) the transcriber waits BaseDelay * 2^n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay returns the wait after failed attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	return p.BaseDelay << attempt
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper is the production Sleeper.
func ContextSleeper(ctx context.Context, d time.Duration) error {
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

// Retryable reports whether a failed attempt may succeed on retry. Every
// failure is transient except 4xx responses other than 408 and 429, invalid
// requests, and cancellation. Client timeouts match context.DeadlineExceeded
// and stay retryable; the transcriber checks its own context separately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidRequest) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode < http.StatusBadRequest
	}
	return true
}

// retryDelay picks the wait before the next attempt, honouring Retry-After.
func (p RetryPolicy) retryDelay(err error, attempt int) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, maxRetryAfter)
	}
	return p.Delay(attempt)
}
