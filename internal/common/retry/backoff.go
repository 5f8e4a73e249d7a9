// Package retry implements bounded exponential backoff for infrastructure
// calls. It wraps the payment gateway call; event store appends are not
// retried.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	MaxInterval        time.Duration
	BackoffCoefficient float64
	MaxElapsedTime      time.Duration
}

// DefaultConfig is a conservative default: 3 attempts, 1s initial
// interval, doubling, capped at 5s, bounded overall by 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		MaxInterval:        5 * time.Second,
		BackoffCoefficient: 2.0,
		MaxElapsedTime:     10 * time.Second,
	}
}

// Do retries fn until it succeeds, the context is canceled, or the
// schedule is exhausted.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, logger, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value alongside the error.
func DoWithResult[T any](ctx context.Context, cfg Config, logger *zap.Logger, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	interval := cfg.InitialInterval
	start := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if time.Since(start) > cfg.MaxElapsedTime {
			return result, fmt.Errorf("retry: max elapsed time exceeded: %w", lastErr)
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if logger != nil {
			logger.Warn("retry attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", cfg.MaxAttempts),
				zap.Error(err))
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * cfg.BackoffCoefficient)
		if interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}

	return result, fmt.Errorf("retry: max attempts reached: %w", lastErr)
}
