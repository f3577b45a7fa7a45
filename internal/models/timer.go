package models

import (
	"time"

	"github.com/google/uuid"
)

// Timer holds the authoritative anchor values for a phase countdown.
// Remaining time is always derived from these anchors against the shared
// clock, never from a per-client countdown.
type Timer struct {
	SessionID        uuid.UUID     `json:"session_id"`
	Phase            Phase         `json:"phase"`
	Duration         time.Duration `json:"duration"`
	StartedAt        time.Time     `json:"started_at"`
	Paused           bool          `json:"paused"`
	PausedAt         *time.Time    `json:"paused_at,omitempty"`
	AccumulatedPause time.Duration `json:"accumulated_pause"`
	Active           bool          `json:"active"`
}

// Remaining derives the time left on the countdown as of now, floored at zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	if !t.Active {
		return 0
	}
	elapsed := now.Sub(t.StartedAt) - t.AccumulatedPause
	if t.Paused && t.PausedAt != nil {
		elapsed = t.PausedAt.Sub(t.StartedAt) - t.AccumulatedPause
	}
	rem := t.Duration - elapsed
	if rem < 0 {
		return 0
	}
	return rem
}
