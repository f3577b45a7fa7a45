// Package events defines the closed set of session events relayed to
// clients, each with a strongly typed payload.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates every event the core emits. The set is closed: adding a
// kind means adding a payload struct and a ParsePayload arm.
type Type string

const (
	TypeParticipantJoined  Type = "participant_joined"
	TypeParticipantLeft    Type = "participant_left"
	TypePhaseChange        Type = "phase_change"
	TypeCardsDistributed   Type = "cards_distributed"
	TypeSubmissionReceived Type = "submission_received"
	TypeVotingComplete     Type = "voting_complete"
	TypeRoundResolved      Type = "round_resolved"
	TypeGameEnded          Type = "game_ended"
	TypeHostChanged        Type = "host_changed"
	TypeTimerPaused        Type = "timer_paused"
	TypeTimerResumed       Type = "timer_resumed"
)

// Event is the envelope published to the broadcast transport.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ParticipantJoinedPayload announces a new or reconnected participant.
type ParticipantJoinedPayload struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	IsHost        bool      `json:"is_host"`
	JoinedAt      time.Time `json:"joined_at"`
}

// ParticipantLeftPayload announces a disconnect. The record is retained
// server-side for rejoin.
type ParticipantLeftPayload struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
}

// PhaseChangePayload announces a committed transition, with the timer
// anchors for timed phases so clients can start a local countdown.
type PhaseChangePayload struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	Round     int        `json:"round"`
	Duration  int        `json:"duration_sec,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// CardsDistributedPayload tells clients a round's hands are ready. Hands
// themselves are fetched per-participant, not broadcast.
type CardsDistributedPayload struct {
	Round        int       `json:"round"`
	PromptCardID uuid.UUID `json:"prompt_card_id"`
	PromptText   string    `json:"prompt_text"`
	HandSize     int       `json:"hand_size"`
}

// SubmissionReceivedPayload announces progress through the submission
// phase without revealing who submitted what.
type SubmissionReceivedPayload struct {
	Round    int `json:"round"`
	Received int `json:"received"`
	Expected int `json:"expected"`
}

// VotingCompletePayload announces that voting closed.
type VotingCompletePayload struct {
	Round       int `json:"round"`
	VotesCast   int `json:"votes_cast"`
	Submissions int `json:"submissions"`
}

// RoundResolvedPayload carries the round outcome. Ties are reported, not
// broken: every tied winner appears.
type RoundResolvedPayload struct {
	Round     int         `json:"round"`
	WinnerIDs []uuid.UUID `json:"winner_ids"`
	MaxVotes  int         `json:"max_votes"`
	HasTie    bool        `json:"has_tie"`
}

// GameEndedPayload carries the final standings.
type GameEndedPayload struct {
	WinnerIDs []uuid.UUID `json:"winner_ids"`
	TopScore  int         `json:"top_score"`
	HasTie    bool        `json:"has_tie"`
}

// HostChangedPayload announces a host handover.
type HostChangedPayload struct {
	PreviousHostID uuid.UUID `json:"previous_host_id"`
	NewHostID      uuid.UUID `json:"new_host_id"`
	Automatic      bool      `json:"automatic"`
}

// TimerPausedPayload announces a frozen countdown with its remaining time.
type TimerPausedPayload struct {
	Phase        string `json:"phase"`
	RemainingSec int    `json:"remaining_sec"`
}

// TimerResumedPayload announces an unfrozen countdown.
type TimerResumedPayload struct {
	Phase        string `json:"phase"`
	RemainingSec int    `json:"remaining_sec"`
}

// New builds an event envelope, marshaling the payload.
func New(sessionID uuid.UUID, t Type, ts time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      t,
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// ParsePayload decodes an event's payload into its concrete struct.
// Unknown types are an error: the event set is closed.
func ParsePayload(e Event) (any, error) {
	var target any
	switch e.Type {
	case TypeParticipantJoined:
		target = &ParticipantJoinedPayload{}
	case TypeParticipantLeft:
		target = &ParticipantLeftPayload{}
	case TypePhaseChange:
		target = &PhaseChangePayload{}
	case TypeCardsDistributed:
		target = &CardsDistributedPayload{}
	case TypeSubmissionReceived:
		target = &SubmissionReceivedPayload{}
	case TypeVotingComplete:
		target = &VotingCompletePayload{}
	case TypeRoundResolved:
		target = &RoundResolvedPayload{}
	case TypeGameEnded:
		target = &GameEndedPayload{}
	case TypeHostChanged:
		target = &HostChangedPayload{}
	case TypeTimerPaused:
		target = &TimerPausedPayload{}
	case TypeTimerResumed:
		target = &TimerResumedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return target, nil
}
