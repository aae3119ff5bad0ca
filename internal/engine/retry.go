package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/store"
)

// RetryConfig bounds the retries of a store read.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // share of the delay randomized, 0 to 1
}

// DefaultStoreRetryConfig is tuned for transient store read failures.
var DefaultStoreRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   100 * time.Millisecond,
	MaxDelay:       2 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
}

// backoff returns the wait before retry number attempt+1.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := math.Min(float64(c.InitialDelay)*math.Pow(c.BackoffFactor, float64(attempt)), float64(c.MaxDelay))
	if c.JitterFraction > 0 {
		d *= 1 + c.JitterFraction*(2*rand.Float64()-1)
	}
	if d <= 0 {
		return c.InitialDelay
	}
	return time.Duration(d)
}

// retryable reports whether another attempt could succeed. Missing records,
// uniqueness conflicts, cancellation and classified engine errors are final.
func retryable(err error) bool {
	var engErr *Error
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAlreadyExists):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &engErr):
		return false
	}
	return true
}

// WithRetry calls fn until it succeeds, returns a final error, ctx ends or
// cfg.MaxRetries retries have been spent. The last error is returned.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}

		timer := time.NewTimer(cfg.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
