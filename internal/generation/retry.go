package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// RetryPolicy controls how provider calls are retried on transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRetryPolicy builds a policy from configuration values, falling back to
// defaults for invalid input.
func NewRetryPolicy(maxRetries, delaySeconds int) RetryPolicy {
	p := RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Duration(delaySeconds) * time.Second}
	if p.MaxRetries < 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	return p
}

// Backoff returns the wait before retry number attempt (zero-based):
// baseDelay * 2^attempt * jitter, with jitter in [0.5, 1.0).
func (p RetryPolicy) Backoff(attempt int, rng *rand.Rand) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rng.Float64()*0.5
	return time.Duration(backoff * jitter)
}

// Retry runs fn until it succeeds, returns a permanent error, or the policy
// is exhausted. Exhaustion and cancellation are reported as ErrTransientFailure.
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, fn func(ctx context.Context) error) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		logger.DebugContext(ctx, "Calling language model",
			"attempt", attemptNum,
			"max_attempts", policy.MaxRetries+1)

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.InfoContext(ctx, "Language model call succeeded after retry", "attempt", attemptNum)
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrTransientFailure, ctxErr)
		}

		if IsPermanent(err) {
			logger.WarnContext(ctx, "Permanent error occurred, not retrying", "error", err)
			return err
		}

		logger.ErrorContext(ctx, "Language model call failed",
			"attempt", attemptNum,
			"error", err)

		if attempt >= policy.MaxRetries {
			logger.WarnContext(ctx, "Maximum retry attempts reached", "max_retries", policy.MaxRetries)
			if errors.Is(err, ErrTransientFailure) {
				return err
			}
			return fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, policy.MaxRetries, err)
		}

		delay := policy.Backoff(attempt, rng)
		logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.WarnContext(ctx, "Language model call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}
