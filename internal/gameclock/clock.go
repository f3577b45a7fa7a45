// Package gameclock provides the single authoritative time reference every
// session component computes against. Clients never trust their own wall
// clocks for countdown math; they are handed anchor values and a server
// "now" and recompute locally.
package gameclock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use New(). In tests, NewFake().
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
	NewTicker(d time.Duration) clockwork.Ticker
	After(d time.Duration) <-chan time.Time
}

// New returns the real wall clock.
func New() Clock {
	return clockwork.NewRealClock()
}

// NewFake returns a controllable clock for tests.
func NewFake() *clockwork.FakeClock {
	return clockwork.NewFakeClock()
}
