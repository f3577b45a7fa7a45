// Package gametimer derives countdown state for timed phases from the
// shared clock and a phase's anchor values. Remote observers receive the
// anchors plus the server's current time and recompute a smooth local
// countdown; no client is ever the source of truth.
package gametimer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

var (
	ErrNotActive     = errors.New("no active timer")
	ErrAlreadyPaused = errors.New("timer already paused")
	ErrNotPaused     = errors.New("timer not paused")
)

// Snapshot is the synchronization contract handed to remote observers.
type Snapshot struct {
	Phase            models.Phase  `json:"phase"`
	Duration         time.Duration `json:"duration"`
	StartedAt        time.Time     `json:"started_at"`
	Paused           bool          `json:"paused"`
	AccumulatedPause time.Duration `json:"accumulated_pause"`
	Remaining        time.Duration `json:"remaining"`
	ServerNow        time.Time     `json:"server_now"`
	Active           bool          `json:"active"`
}

// ExpireFunc is invoked exactly once when an active timer runs out.
type ExpireFunc func(phase models.Phase)

// Coordinator owns one session's countdown. Mutations come from the
// session runtime; reads may come from any goroutine.
type Coordinator struct {
	clock    gameclock.Clock
	onExpire ExpireFunc

	mu    sync.Mutex
	timer models.Timer
	fired bool
}

func New(clock gameclock.Clock, onExpire ExpireFunc) *Coordinator {
	return &Coordinator{clock: clock, onExpire: onExpire}
}

// Start anchors a fresh countdown for a timed phase, clearing any prior
// pause state.
func (c *Coordinator) Start(sessionID uuid.UUID, phase models.Phase, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = models.Timer{
		SessionID: sessionID,
		Phase:     phase,
		Duration:  duration,
		StartedAt: c.clock.Now(),
		Active:    true,
	}
	c.fired = false
}

// Stop marks the timer inactive, e.g. on phase exit or session reset.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Active = false
}

// Restore rebuilds the coordinator from a persisted timer record. Resuming
// against the same clock yields the same remaining time the timer had
// before persistence.
func (c *Coordinator) Restore(t models.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = t
	c.fired = false
}

// Rearm reactivates a fired timer so the next tick fires it again. Used
// when expiry handling failed and must be retried.
func (c *Coordinator) Rearm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Active = true
	c.fired = false
}

// State returns the anchor record for persistence.
func (c *Coordinator) State() models.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer
}

// Pause freezes the countdown.
func (c *Coordinator) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timer.Active {
		return ErrNotActive
	}
	if c.timer.Paused {
		return ErrAlreadyPaused
	}
	now := c.clock.Now()
	c.timer.Paused = true
	c.timer.PausedAt = &now
	return nil
}

// Resume adds the elapsed pause to the accumulated pause and unfreezes.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timer.Active {
		return ErrNotActive
	}
	if !c.timer.Paused {
		return ErrNotPaused
	}
	c.timer.AccumulatedPause += c.clock.Now().Sub(*c.timer.PausedAt)
	c.timer.Paused = false
	c.timer.PausedAt = nil
	return nil
}

// Remaining returns the time left on the countdown, floored at zero.
func (c *Coordinator) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.Remaining(c.clock.Now())
}

// Snapshot returns the full synchronization contract for remote observers.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	return Snapshot{
		Phase:            c.timer.Phase,
		Duration:         c.timer.Duration,
		StartedAt:        c.timer.StartedAt,
		Paused:           c.timer.Paused,
		AccumulatedPause: c.timer.AccumulatedPause,
		Remaining:        c.timer.Remaining(now),
		ServerNow:        now,
		Active:           c.timer.Active,
	}
}

// Tick checks for expiry and fires the expire callback at most once per
// Start. A timer that already fired never fires again, no matter how often
// Tick is called before the phase changes.
func (c *Coordinator) Tick() {
	c.mu.Lock()
	if !c.timer.Active || c.timer.Paused || c.fired || c.timer.Remaining(c.clock.Now()) > 0 {
		c.mu.Unlock()
		return
	}
	c.fired = true
	c.timer.Active = false
	phase := c.timer.Phase
	cb := c.onExpire
	c.mu.Unlock()

	if cb != nil {
		cb(phase)
	}
}

// RunTicker drives Tick on a fixed interval until ctx is canceled. The
// session runtime cancels it on teardown so a stale timer can never fire
// against a closed session.
func (c *Coordinator) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Tick()
		}
	}
}
