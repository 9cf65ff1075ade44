package search

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
)

// BackoffFunc returns the delay to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ConstantBackoff waits d between every attempt.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// SleepContext is the default SleepFunc backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RetryPolicy is a bounded retry loop with an injectable backoff and sleep.
type RetryPolicy struct {
	// MaxAttempts counts the first try; values below 1 are treated as 1.
	MaxAttempts int
	Backoff     BackoffFunc
	Sleep       SleepFunc
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// Attempts returns the effective number of attempts.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The backoff only runs between attempts.
// The last error is returned unchanged so callers can classify it.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	attempts := p.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if err := sleep(ctx, delay); err != nil {
			return errors.Wrap(err, "retry backoff interrupted")
		}
	}

	return lastErr
}
