// Package lifecycle tracks participant connection state, enforces
// host-only privileges, and performs host handover.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

var (
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotEligible   = errors.New("not eligible")
	ErrNotMember     = errors.New("not a member of this session")
	ErrSessionFull   = errors.New("session is full")
	ErrNameTooLong   = errors.New("display name too long")
)

// Action is a participant-initiated operation subject to capability checks.
type Action string

const (
	ActionStartGame      Action = "start_game"
	ActionChangeSettings Action = "change_settings"
	ActionSubmit         Action = "submit"
	ActionVote           Action = "vote"
)

// Capability is the result of a capability check. Expected denials come
// back as a result with a machine-checkable reason, never as an error.
type Capability struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

const (
	ReasonNotHost          = "not_host"
	ReasonWrongPhase       = "wrong_phase"
	ReasonAlreadySubmitted = "already_submitted"
	ReasonAlreadyVoted     = "already_voted"
	ReasonNotMember        = "not_a_member"
)

func allowed() Capability             { return Capability{Allowed: true} }
func denied(reason string) Capability { return Capability{Reason: reason} }

// RoundView carries the round facts a capability check needs.
type RoundView struct {
	Phase        models.Phase
	HasSubmitted bool
	HasVoted     bool
}

// Manager owns one session's participant roster. Not safe for concurrent
// use; the session runtime serializes all access.
type Manager struct {
	session      *models.Session
	clock        gameclock.Clock
	participants map[uuid.UUID]*models.Participant
	order        []uuid.UUID // join order
}

func New(session *models.Session, clock gameclock.Clock) *Manager {
	return &Manager{
		session:      session,
		clock:        clock,
		participants: make(map[uuid.UUID]*models.Participant),
	}
}

// Restore re-adds persisted participants in join order.
func (m *Manager) Restore(participants []*models.Participant) {
	for _, p := range participants {
		m.participants[p.ID] = p
		m.order = append(m.order, p.ID)
	}
}

// Join adds a new connected participant. The first participant to join an
// empty session becomes host.
func (m *Manager) Join(name string) (*models.Participant, error) {
	if len(name) > models.MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	if len(m.participants) >= m.session.Settings.MaxParticipants {
		return nil, ErrSessionFull
	}
	p := &models.Participant{
		ID:        uuid.New(),
		SessionID: m.session.ID,
		Name:      name,
		Connected: true,
		JoinedAt:  m.clock.Now(),
	}
	m.participants[p.ID] = p
	m.order = append(m.order, p.ID)
	if len(m.participants) == 1 {
		m.session.HostID = p.ID
	}
	return p, nil
}

// Remove backs a participant out after the join write failed. A host
// assignment made for a first joiner is undone with it.
func (m *Manager) Remove(id uuid.UUID) {
	if _, ok := m.participants[id]; !ok {
		return
	}
	delete(m.participants, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.session.HostID == id {
		m.session.HostID = uuid.Nil
		if next, ok := m.NextHost(); ok {
			m.session.HostID = next
		}
	}
}

// Get returns a participant by id.
func (m *Manager) Get(id uuid.UUID) (*models.Participant, bool) {
	p, ok := m.participants[id]
	return p, ok
}

// Participants returns the roster in join order.
func (m *Manager) Participants() []*models.Participant {
	out := make([]*models.Participant, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.participants[id])
	}
	return out
}

// ConnectedCount returns how many participants are currently connected.
func (m *Manager) ConnectedCount() int {
	n := 0
	for _, p := range m.participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// SetConnected toggles a participant's connection flag. The record is kept
// either way so the participant can rejoin.
func (m *Manager) SetConnected(id uuid.UUID, connected bool) error {
	p, ok := m.participants[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMember, id)
	}
	p.Connected = connected
	return nil
}

// TransferHost hands host privileges to another connected member. Only the
// current host may transfer.
func (m *Manager) TransferHost(callerID, newHostID uuid.UUID) error {
	if callerID != m.session.HostID {
		return fmt.Errorf("%w: only the host can transfer host privileges", ErrNotAuthorized)
	}
	target, ok := m.participants[newHostID]
	if !ok {
		return fmt.Errorf("%w: target is not a member", ErrNotEligible)
	}
	if !target.Connected {
		return fmt.Errorf("%w: target is not connected", ErrNotEligible)
	}
	m.session.HostID = newHostID
	return nil
}

// NextHost picks the handover target under the auto policy: the earliest
// joined participant that is connected and not the current host.
func (m *Manager) NextHost() (uuid.UUID, bool) {
	for _, id := range m.order {
		p := m.participants[id]
		if p.Connected && id != m.session.HostID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// HandleHostDisconnect applies the configured host policy after the host
// drops. Under the manual policy nothing happens automatically; an
// explicit TransferHost call is required.
func (m *Manager) HandleHostDisconnect() (newHost uuid.UUID, transferred bool) {
	if m.session.Settings.HostPolicy != models.HostPolicyAutoJoinOrder {
		return uuid.Nil, false
	}
	id, ok := m.NextHost()
	if !ok {
		return uuid.Nil, false
	}
	m.session.HostID = id
	return id, true
}

// CanPerform centralizes authorization for participant actions.
func (m *Manager) CanPerform(action Action, participantID uuid.UUID, view RoundView) Capability {
	if _, ok := m.participants[participantID]; !ok {
		return denied(ReasonNotMember)
	}
	switch action {
	case ActionStartGame, ActionChangeSettings:
		if participantID != m.session.HostID {
			return denied(ReasonNotHost)
		}
		if view.Phase != models.PhaseLobby {
			return denied(ReasonWrongPhase)
		}
	case ActionSubmit:
		if view.Phase != models.PhaseSubmission {
			return denied(ReasonWrongPhase)
		}
		if view.HasSubmitted {
			return denied(ReasonAlreadySubmitted)
		}
	case ActionVote:
		if view.Phase != models.PhaseVoting {
			return denied(ReasonWrongPhase)
		}
		if view.HasVoted {
			return denied(ReasonAlreadyVoted)
		}
	}
	return allowed()
}
