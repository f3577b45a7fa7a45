package gametimer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func clockFake() *clockwork.FakeClock {
	return gameclock.NewFake()
}

func TestRemainingCountsDown(t *testing.T) {
	clock := clockFake()
	c := New(clock, nil)
	c.Start(uuid.New(), models.PhaseSubmission, 60*time.Second)

	assert.Equal(t, 60*time.Second, c.Remaining())

	prev := c.Remaining()
	for i := 0; i < 6; i++ {
		clock.Advance(10 * time.Second)
		rem := c.Remaining()
		assert.LessOrEqual(t, rem, prev, "remaining must be non-increasing")
		prev = rem
	}
	assert.Equal(t, time.Duration(0), c.Remaining())

	clock.Advance(10 * time.Second)
	assert.Equal(t, time.Duration(0), c.Remaining(), "remaining floors at zero")
}

func TestPauseFreezesCountdown(t *testing.T) {
	clock := clockFake()
	c := New(clock, nil)
	c.Start(uuid.New(), models.PhaseVoting, 30*time.Second)

	clock.Advance(10 * time.Second)
	require.NoError(t, c.Pause())
	frozen := c.Remaining()
	assert.Equal(t, 20*time.Second, frozen)

	clock.Advance(45 * time.Second)
	assert.Equal(t, frozen, c.Remaining(), "remaining is constant while paused")

	require.NoError(t, c.Resume())
	assert.Equal(t, frozen, c.Remaining(), "pause+resume changes remaining by ~0")

	clock.Advance(5 * time.Second)
	assert.Equal(t, 15*time.Second, c.Remaining())
}

func TestPauseResumeStateErrors(t *testing.T) {
	clock := clockFake()
	c := New(clock, nil)

	assert.ErrorIs(t, c.Pause(), ErrNotActive)
	assert.ErrorIs(t, c.Resume(), ErrNotActive)

	c.Start(uuid.New(), models.PhaseSubmission, time.Minute)
	assert.ErrorIs(t, c.Resume(), ErrNotPaused)
	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrAlreadyPaused)
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	clock := clockFake()
	var fired atomic.Int32
	var gotPhase models.Phase
	c := New(clock, func(p models.Phase) {
		fired.Add(1)
		gotPhase = p
	})
	c.Start(uuid.New(), models.PhaseSubmission, 10*time.Second)

	c.Tick()
	assert.Equal(t, int32(0), fired.Load(), "no expiry before the deadline")

	clock.Advance(10 * time.Second)
	c.Tick()
	c.Tick()
	c.Tick()
	assert.Equal(t, int32(1), fired.Load(), "expiry must be idempotent")
	assert.Equal(t, models.PhaseSubmission, gotPhase)
}

func TestRearmFiresAgain(t *testing.T) {
	clock := clockFake()
	var fired atomic.Int32
	c := New(clock, func(models.Phase) { fired.Add(1) })
	c.Start(uuid.New(), models.PhaseSubmission, 10*time.Second)

	clock.Advance(10 * time.Second)
	c.Tick()
	c.Tick()
	require.Equal(t, int32(1), fired.Load())

	c.Rearm()
	c.Tick()
	assert.Equal(t, int32(2), fired.Load(), "a rearmed timer fires on the next tick")
}

func TestPausedTimerDoesNotExpire(t *testing.T) {
	clock := clockFake()
	var fired atomic.Int32
	c := New(clock, func(models.Phase) { fired.Add(1) })
	c.Start(uuid.New(), models.PhaseVoting, 5*time.Second)
	require.NoError(t, c.Pause())

	clock.Advance(time.Minute)
	c.Tick()
	assert.Equal(t, int32(0), fired.Load())

	require.NoError(t, c.Resume())
	clock.Advance(5 * time.Second)
	c.Tick()
	assert.Equal(t, int32(1), fired.Load())
}

func TestRestoreRoundTrip(t *testing.T) {
	clock := clockFake()
	c := New(clock, nil)
	c.Start(uuid.New(), models.PhaseSubmission, 90*time.Second)
	clock.Advance(25 * time.Second)
	require.NoError(t, c.Pause())
	clock.Advance(5 * time.Second)
	require.NoError(t, c.Resume())

	before := c.Remaining()
	state := c.State()

	// Simulate a process restart resuming against the same clock.
	restored := New(clock, nil)
	restored.Restore(state)
	assert.Equal(t, before, restored.Remaining())
}

func TestRunTickerCancelable(t *testing.T) {
	clock := clockFake()
	var fired atomic.Int32
	c := New(clock, func(models.Phase) { fired.Add(1) })
	c.Start(uuid.New(), models.PhaseSubmission, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunTicker(ctx, time.Second)
		close(done)
	}()

	clock.BlockUntil(1)
	cancel()
	<-done

	// Ticker is gone; advancing past the deadline must not fire anything.
	clock.Advance(10 * time.Second)
	assert.Equal(t, int32(0), fired.Load(), "canceled ticker must not fire against a torn-down session")
}

func TestSnapshotCarriesAnchors(t *testing.T) {
	clock := clockFake()
	c := New(clock, nil)
	sid := uuid.New()
	c.Start(sid, models.PhaseVoting, 45*time.Second)
	clock.Advance(15 * time.Second)

	snap := c.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, models.PhaseVoting, snap.Phase)
	assert.Equal(t, 45*time.Second, snap.Duration)
	assert.Equal(t, 30*time.Second, snap.Remaining)
	assert.Equal(t, clock.Now(), snap.ServerNow)
	// A remote observer recomputes remaining from the anchors alone.
	derived := snap.Duration - snap.ServerNow.Sub(snap.StartedAt) - snap.AccumulatedPause
	assert.Equal(t, snap.Remaining, derived)
}
