package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase defines where a session currently is in the round cycle.
type Phase string

const (
	PhaseLobby        Phase = "LOBBY"
	PhaseDistribution Phase = "DISTRIBUTION"
	PhaseSubmission   Phase = "SUBMISSION"
	PhaseVoting       Phase = "VOTING"
	PhaseResults      Phase = "RESULTS"
)

// Valid reports whether p is one of the five defined phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseDistribution, PhaseSubmission, PhaseVoting, PhaseResults:
		return true
	}
	return false
}

// Timed reports whether a countdown runs during this phase.
func (p Phase) Timed() bool {
	return p == PhaseSubmission || p == PhaseVoting
}

// HostPolicy defines what happens to host privileges when the host disconnects.
type HostPolicy string

const (
	HostPolicyManual        HostPolicy = "MANUAL"
	HostPolicyAutoJoinOrder HostPolicy = "AUTO_JOIN_ORDER"
)

// SessionSettings holds JSONB configuration for sessions.
type SessionSettings struct {
	TargetScore         int        `json:"target_score"`
	MaxParticipants     int        `json:"max_participants"`
	MinParticipants     int        `json:"min_participants"`
	SubmissionTimerSec  int        `json:"submission_timer_sec"`
	VotingTimerSec      int        `json:"voting_timer_sec"`
	CardsPerParticipant int        `json:"cards_per_participant"`
	HostPolicy          HostPolicy `json:"host_policy,omitempty"`
	Theme               string     `json:"theme,omitempty"`
}

// SubmissionTimer returns the submission countdown as a duration.
func (s SessionSettings) SubmissionTimer() time.Duration {
	return time.Duration(s.SubmissionTimerSec) * time.Second
}

// VotingTimer returns the voting countdown as a duration.
func (s SessionSettings) VotingTimer() time.Duration {
	return time.Duration(s.VotingTimerSec) * time.Second
}

// Session represents one game room instance.
type Session struct {
	ID        uuid.UUID       `json:"id"`
	RoomCode  string          `json:"room_code"`
	Phase     Phase           `json:"phase"`
	Round     int             `json:"round"`
	Settings  SessionSettings `json:"settings"`
	HostID    uuid.UUID       `json:"host_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
