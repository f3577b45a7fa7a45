package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
)

var (
	// ErrConnectionLost is the terminal error surfaced once the reconnect
	// budget is spent. Anything before that stays transparent to the user.
	ErrConnectionLost = errors.New("connection lost")

	// ErrRecoveryReset signals that a pending reconnect wait was canceled
	// by a manual reset.
	ErrRecoveryReset = errors.New("recovery reset")
)

// RecoveryConfig bounds the reconnect loop.
type RecoveryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
}

// DefaultRecoveryConfig matches the reconnect contract: at most 10
// attempts, delays growing by 1.5x up to 30s.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      1.5,
	}
}

// Recovery is a stateful reconnection helper. The attempt counter carries
// across Run calls until a connect succeeds or Reset is called, so a
// client that keeps failing burns through one bounded budget rather than
// restarting it on every call.
type Recovery struct {
	clock       gameclock.Clock
	cfg         RecoveryConfig
	onExhausted func()

	mu      sync.Mutex
	attempt int
	resetCh chan struct{}
}

func NewRecovery(clock gameclock.Clock, cfg RecoveryConfig, onExhausted func()) *Recovery {
	return &Recovery{
		clock:       clock,
		cfg:         cfg,
		onExhausted: onExhausted,
		resetCh:     make(chan struct{}),
	}
}

// Attempts returns how many failed attempts the current budget has seen.
func (r *Recovery) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// Reset cancels any pending backoff wait and zeroes the attempt counter.
// Safe to call at any time, e.g. on a manual user-triggered retry.
func (r *Recovery) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt = 0
	close(r.resetCh)
	r.resetCh = make(chan struct{})
}

// Run keeps calling connect until it succeeds, the budget is exhausted,
// the context is canceled, or Reset interrupts a pending wait. Success
// resets the attempt counter; exhaustion fires the terminal callback and
// returns ErrConnectionLost.
func (r *Recovery) Run(ctx context.Context, connect func(context.Context) error) error {
	for {
		err := connect(ctx)
		if err == nil {
			r.mu.Lock()
			r.attempt = 0
			r.mu.Unlock()
			return nil
		}

		r.mu.Lock()
		r.attempt++
		attempt := r.attempt
		resetCh := r.resetCh
		r.mu.Unlock()

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.cfg.MaxAttempts).
			Msg("reconnect attempt failed")

		if attempt >= r.cfg.MaxAttempts {
			if r.onExhausted != nil {
				r.onExhausted()
			}
			return errors.Join(ErrConnectionLost, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resetCh:
			return ErrRecoveryReset
		case <-r.clock.After(r.delay(attempt - 1)):
		}
	}
}

// delay is base * factor^attempt capped at MaxDelay, plus up to 10% jitter.
func (r *Recovery) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Factor, float64(attempt)))
	if d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}
