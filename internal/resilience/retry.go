// Package resilience carries the retry, reconnection, and state recovery
// helpers that keep a flaky client usable: transparent retries up to a
// budget, bounded reconnect backoff, and authoritative state refetch after
// a reconnect.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
)

// ErrRetriesExhausted wraps the final error of an exhausted retry budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryConfig bounds one retried operation and names it for logging.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Clock      gameclock.Clock

	// Logging context.
	Op            string
	SessionID     uuid.UUID
	ParticipantID uuid.UUID
}

// Retry executes op, retrying on failure up to MaxRetries times with
// exponential backoff (BaseDelay * 2^attempt plus up to 10% jitter). The
// last error is returned after the budget is spent. Every attempt is
// logged with its index and context.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg.BaseDelay, attempt-1)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-cfg.Clock.After(delay):
			}
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("op", cfg.Op).
			Str("session_id", cfg.SessionID.String()).
			Str("participant_id", cfg.ParticipantID.String()).
			Msg("operation failed")
	}

	return zero, fmt.Errorf("%w: %s: %w", ErrRetriesExhausted, cfg.Op, lastErr)
}

// backoffDelay is base * 2^attempt plus jitter in [0, 10%) of the delay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * 0.1 * float64(d))
	return d + jitter
}
