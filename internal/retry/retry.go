// Package retry implements a single exponential-backoff-with-cap
// policy. Its one call site today is the Route Provider's quote
// retries.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is an exponential backoff schedule: base, doubling each
// attempt, clamped at cap, for up to maxAttempts tries.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// Delay returns the backoff delay before attempt n (0-indexed: the
// delay before the 2nd attempt is Delay(1)).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Classifier reports whether an error is worth retrying. Call sites
// supply their own: network timeouts and rate limits are retriable,
// malformed-request and insufficient-liquidity errors are not.
type Classifier func(error) bool

// Do runs fn up to p.MaxAttempts times, sleeping p.Delay(attempt)
// between attempts, stopping early on a non-retriable error or ctx
// cancellation. It returns the last error if every attempt fails.
func Do(ctx context.Context, p Policy, isRetriable Classifier, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(p.Delay(attempt - 1)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetriable != nil && !isRetriable(err) {
			return err
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}
