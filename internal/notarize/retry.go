package notarize

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig defines retry behavior for externally-facing calls.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    5 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
}

// Do executes op with exponential backoff. Errors classified ActionFatal
// propagate immediately; retryable errors are retried up to
// cfg.MaxAttempts with jittered delays. Exhausting attempts returns the
// last error wrapped.
func Do[T any](ctx context.Context, name string, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if Classify(err) == ActionFatal {
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		RetriesTotal.WithLabelValues(name).Inc()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoffDelay(attempt, cfg)):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

// backoffDelay computes InitialDelay * BackoffMultiple^attempt, capped at
// MaxDelay, with ±25% jitter to avoid thundering-herd against the ledger.
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(delay * jitter)
}
