package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls exponential backoff with jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it is scaled by
	// Multiplier after each attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed wait.
	MaxDelay time.Duration
	// Multiplier scales the delay between attempts.
	Multiplier float64
	// Jitter adds a random fraction of the delay (0.5 = up to +50%).
	Jitter float64
	// ShouldRetry overrides the transient check; nil means IsTransient.
	ShouldRetry func(err error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig is tuned for batched record-store writes: 5 attempts,
// 2s base delay doubling each time, with jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.5,
	}
}

// Do runs fn with retries per cfg. Only transient errors are retried; the
// wait between attempts is a real timer, and context cancellation stops
// retrying immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions returning a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = withDefaults(cfg)
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func withDefaults(cfg RetryConfig) RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}

// backoff computes the wait after the given 1-based attempt.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter > 0 {
		delay += rand.Float64() * cfg.Jitter * delay
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback logging each attempt for the given
// component and operation.
func RetryLogger(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
