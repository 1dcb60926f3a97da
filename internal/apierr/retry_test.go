package apierr_test

// Notes:
// - Exact backoff timing is not asserted. Jitter is checked against its
//   bounds only.

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-videochunk/internal/apierr"
)

// ---------------------------------------------------------------------------
// TestRetryWithBackoff
// ---------------------------------------------------------------------------

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	fast := apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	transient := errors.New("transient")

	tests := []struct {
		name       string
		cfg        apierr.RetryConfig
		failures   int // attempts that fail before success
		retry      bool
		wantCalls  int
		wantErr    error
		wantResult string
	}{
		{"first try succeeds", fast, 0, true, 1, nil, "ok"},
		{"succeeds after retries", fast, 2, true, 3, nil, "ok"},
		{"non-retryable stops at once", fast, 10, false, 1, transient, ""},
		{"exhausted retries wrap last error", fast, 10, true, 4, transient, ""},
		{
			name:      "negative MaxRetries means one attempt",
			cfg:       apierr.RetryConfig{MaxRetries: -2},
			failures:  10,
			retry:     true,
			wantCalls: 1,
			wantErr:   transient,
		},
		{
			name:       "zero delays are normalized",
			cfg:        apierr.RetryConfig{MaxRetries: 1},
			failures:   1,
			retry:      true,
			wantCalls:  2,
			wantResult: "ok",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := apierr.RetryWithBackoff(context.Background(), tt.cfg,
				func() (string, error) {
					calls++
					if calls <= tt.failures {
						return "", transient
					}
					return "ok", nil
				},
				func(error) bool { return tt.retry },
			)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.wantResult {
				t.Errorf("RetryWithBackoff() = %q, %v; want %q", got, err, tt.wantResult)
			}
		})
	}
}

func TestRetryWithBackoff_OnRetry(t *testing.T) {
	t.Parallel()

	var attempts []int
	var delays []time.Duration
	cfg := apierr.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if !errors.Is(err, apierr.ErrRateLimit) {
				t.Errorf("OnRetry error = %v", err)
			}
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	}

	_, _ = apierr.RetryWithBackoff(context.Background(), cfg,
		func() (int, error) { return 0, apierr.ErrRateLimit },
		func(error) bool { return true },
	)

	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("attempts = %v, want [1 2 3]", attempts)
	}
	// Delays double and stop at MaxDelay.
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}
	for i := range want {
		if i < len(delays) && delays[i] != want[i] {
			t.Errorf("delays = %v, want %v", delays, want)
			break
		}
	}
}

func TestRetryWithBackoff_GiveUpNamesOp(t *testing.T) {
	t.Parallel()

	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{Op: "chat completion", MaxRetries: 1},
		func() (int, error) { return 0, apierr.ErrTimeout },
		func(error) bool { return true },
	)
	if !errors.Is(err, apierr.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "chat completion: gave up after 2 attempts") {
		t.Errorf("error = %q, want op and attempt count", err)
	}
}

func TestRetryWithBackoff_Jitter(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond
	var delays []time.Duration
	cfg := apierr.RetryConfig{
		MaxRetries: 5,
		BaseDelay:  base,
		MaxDelay:   base,
		Jitter:     0.5,
		OnRetry: func(_ int, _ error, d time.Duration) {
			delays = append(delays, d)
		},
	}
	_, _ = apierr.RetryWithBackoff(context.Background(), cfg,
		func() (int, error) { return 0, apierr.ErrRateLimit },
		func(error) bool { return true },
	)

	if len(delays) != 5 {
		t.Fatalf("retries = %d, want 5", len(delays))
	}
	for _, d := range delays {
		if d < base/2 || d > base*3/2 {
			t.Errorf("delay %v outside [%v, %v]", d, base/2, base*3/2)
		}
	}
}

func TestRetryWithBackoff_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before first backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := apierr.RetryWithBackoff(ctx,
			apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Minute},
			func() (string, error) { calls++; return "", errors.New("retry me") },
			func(error) bool { return true },
		)
		if !errors.Is(err, context.Canceled) || calls != 1 {
			t.Errorf("err = %v calls = %d, want context.Canceled after 1 call", err, calls)
		}
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := apierr.RetryWithBackoff(ctx,
			apierr.RetryConfig{MaxRetries: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: 100 * time.Millisecond},
			func() (string, error) {
				calls++
				if calls == 1 {
					time.AfterFunc(5*time.Millisecond, cancel)
				}
				return "", errors.New("transient")
			},
			func(error) bool { return true },
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls >= 5 {
			t.Errorf("calls = %d, want early stop", calls)
		}
	})
}
