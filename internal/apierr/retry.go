package apierr

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig controls exponential backoff for remote model calls.
//
// Out-of-range values are normalized: MaxRetries < 0 means a single
// attempt, BaseDelay <= 0 becomes 1ms, MaxDelay <= 0 becomes BaseDelay and
// Jitter is clamped to [0, 1].
type RetryConfig struct {
	// Op names the call in the final error, e.g. "chat completion".
	Op         string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter spreads each delay uniformly over ±Jitter of its value so
	// parallel workers hitting the same rate limit do not retry in step.
	// Zero keeps delays exact.
	Jitter float64
	// OnRetry is called before each backoff sleep with the attempt that
	// just failed (starting at 1), its error and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c *RetryConfig) normalize() {
	c.MaxRetries = max(c.MaxRetries, 0)
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
	c.Jitter = min(max(c.Jitter, 0), 1)
	if c.Op == "" {
		c.Op = "request"
	}
}

// delay returns the sleep before retry number n (starting at 1).
func (c *RetryConfig) delay(n int) time.Duration {
	d := c.BaseDelay
	for i := 1; i < n && d < c.MaxDelay; i++ {
		d *= 2
	}
	d = min(d, c.MaxDelay)
	if c.Jitter == 0 {
		return d
	}
	spread := float64(d) * c.Jitter
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}

// RetryWithBackoff calls fn until it succeeds, shouldRetry rejects its error,
// the retries run out or ctx is done. Only the last result is returned.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) {
			return zero, err
		}
		if attempt > cfg.MaxRetries {
			return zero, fmt.Errorf("%s: gave up after %d attempts: %w", cfg.Op, attempt, err)
		}

		d := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, d)
		}
		if werr := sleep(ctx, d); werr != nil {
			return zero, fmt.Errorf("%s: %w (last error: %v)", cfg.Op, werr, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
