package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Multiplier grows the delay exponentially. Ignored when Linear is set.
	Multiplier float64
	// Linear switches to linear growth: delay = InitialDelay * attempt.
	Linear bool
	// JitterFactor is 0.0-1.0 for +/- jitter to prevent thundering herd.
	JitterFactor float64
}

// DefaultConfig returns exponential backoff defaults for store operations:
// 3 retries with 100ms initial delay, capped at 5s, doubling each time.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// LinearConfig returns linear backoff used around completion calls:
// the delay after attempt n is (n+1) * base, with no jitter.
func LinearConfig(maxRetries int, base time.Duration) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: base,
		MaxDelay:     time.Duration(maxRetries+1) * base,
		Linear:       true,
	}
}

// delayFor computes the wait before the next attempt. attempt is zero-based
// and counts completed attempts.
func (c *Config) delayFor(attempt int) time.Duration {
	var d time.Duration
	if c.Linear {
		d = time.Duration(attempt+1) * c.InitialDelay
	} else {
		d = c.InitialDelay
		for i := 0; i < attempt; i++ {
			d = time.Duration(float64(d) * c.Multiplier)
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return applyJitter(d, c.JitterFactor)
}

// applyJitter spreads a delay by +/- delay*jitterFactor.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn, retrying on failure until the attempt budget is spent.
// Respects context cancellation during wait periods.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn and returns both result and error, retrying on
// failure. The last error is returned after all retries are exhausted.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		result = r
		lastErr = err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.delayFor(attempt)):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that explicitly declare their
// retryability, such as classified completion errors.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether an error looks transient. Errors implementing
// RetryableError decide for themselves; everything else is pattern-matched.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"network is unreachable",
		"429",
		"500",
		"502",
		"503",
		"504",
		"rate limit",
		"service busy",
		"service unavailable",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
