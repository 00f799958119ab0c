package gateway

import (
	"context"
	"time"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 10

// RetryPolicy controls how rate-limited store calls are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff maps the store's retry-after hint to the sleep before the
	// given retry (1-based). Defaults to DoubleRetryAfter.
	Backoff func(retryAfter time.Duration, retry int) time.Duration
	// Sleep waits for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// ReturnLastOnExhausted returns the last result with a nil error when
	// the budget runs out, instead of a RETRIES_EXHAUSTED error.
	ReturnLastOnExhausted bool
}

// DefaultRetryPolicy returns 10 retries, sleeping twice the retry-after.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DoubleRetryAfter,
		Sleep:      SleepContext,
	}
}

// DoubleRetryAfter sleeps twice the store-suggested duration.
func DoubleRetryAfter(retryAfter time.Duration, _ int) time.Duration {
	return 2 * retryAfter
}

// SleepContext sleeps for d, returning early with ctx.Err() on
// cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
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

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff == nil {
		p.Backoff = DoubleRetryAfter
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}
