// Package phase owns the session phase state machine and the legality of
// transitions between phases.
package phase

import (
	"fmt"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// InvalidTransitionError reports a rejected transition request together
// with a reason suitable for direct display.
type InvalidTransitionError struct {
	From   models.Phase
	To     models.Phase
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// Context carries the session facts a transition is validated against.
type Context struct {
	ActiveParticipants int
	MinParticipants    int
	SubmissionCount    int
	// TimerExpired waives the all-submissions gate: a lapsed deadline
	// opens voting with whatever was received.
	TimerExpired bool
}

// Machine tracks the current phase of one session. It is not safe for
// concurrent use; the session runtime serializes all access.
type Machine struct {
	current models.Phase
}

// NewMachine returns a machine starting in the lobby.
func NewMachine() *Machine {
	return &Machine{current: models.PhaseLobby}
}

// Restore rebuilds a machine at a persisted phase.
func Restore(p models.Phase) (*Machine, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown phase %q", p)
	}
	return &Machine{current: p}, nil
}

// Current returns the current phase.
func (m *Machine) Current() models.Phase {
	return m.current
}

// Revert moves the machine back to p without validation. Used when the
// write recording a transition fails and the in-memory phase must agree
// with the durable one again.
func (m *Machine) Revert(p models.Phase) {
	m.current = p
}

// RequestTransition moves the machine from `from` to `to` if the request
// is not stale, the session has enough connected participants to leave the
// lobby, and the target phase's precondition holds. The move is a single
// assignment: callers observe either the old phase or the new one.
//
// The submission -> voting gate normally requires a submission from every
// active participant; Context.TimerExpired relaxes it, so a lapsed
// deadline opens voting with however many submissions arrived in time.
func (m *Machine) RequestTransition(from, to models.Phase, tctx Context) error {
	if !to.Valid() {
		return &InvalidTransitionError{From: from, To: to, Reason: "unknown target phase"}
	}
	if from != m.current {
		return &InvalidTransitionError{
			From:   from,
			To:     to,
			Reason: fmt.Sprintf("stale request: session is in %s", m.current),
		}
	}
	if m.current == models.PhaseLobby && to != models.PhaseLobby && tctx.ActiveParticipants < tctx.MinParticipants {
		return &InvalidTransitionError{
			From:   from,
			To:     to,
			Reason: fmt.Sprintf("need at least %d connected participants, have %d", tctx.MinParticipants, tctx.ActiveParticipants),
		}
	}

	switch to {
	case models.PhaseLobby:
		// Reset is always allowed, from anywhere.
	case models.PhaseDistribution:
		if from != models.PhaseLobby && from != models.PhaseResults {
			return &InvalidTransitionError{From: from, To: to, Reason: "cards are distributed from the lobby or after results"}
		}
	case models.PhaseSubmission:
		if from != models.PhaseDistribution {
			return &InvalidTransitionError{From: from, To: to, Reason: "submissions open only after distribution"}
		}
	case models.PhaseVoting:
		if from != models.PhaseSubmission {
			return &InvalidTransitionError{From: from, To: to, Reason: "voting opens only after submissions"}
		}
		if !tctx.TimerExpired && tctx.SubmissionCount < tctx.ActiveParticipants {
			return &InvalidTransitionError{
				From:   from,
				To:     to,
				Reason: fmt.Sprintf("waiting on submissions: %d of %d received", tctx.SubmissionCount, tctx.ActiveParticipants),
			}
		}
	case models.PhaseResults:
		if from != models.PhaseVoting {
			return &InvalidTransitionError{From: from, To: to, Reason: "results follow voting"}
		}
	}

	m.current = to
	return nil
}
