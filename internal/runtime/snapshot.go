package runtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gametimer"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// ParticipantState is one roster entry in a snapshot.
type ParticipantState struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
	IsHost    bool      `json:"is_host"`
}

// CardState is one card in the requesting participant's hand.
type CardState struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// SubmissionState is one submission as shown during voting and results.
// Authors stay hidden until the round resolves; vote counts appear only
// in results.
type SubmissionState struct {
	ID            uuid.UUID  `json:"id"`
	ResponseTexts []string   `json:"response_texts"`
	Votes         *int       `json:"votes,omitempty"`
	AuthorID      *uuid.UUID `json:"author_id,omitempty"`
	Mine          bool       `json:"mine"`
}

// SessionState is the full resync snapshot sent on connect and served
// over the state endpoint. Timer anchors plus ServerNow let clients
// derive the countdown without trusting their own clocks.
type SessionState struct {
	SessionID    uuid.UUID              `json:"session_id"`
	RoomCode     string                 `json:"room_code"`
	Phase        models.Phase           `json:"phase"`
	Round        int                    `json:"round"`
	Settings     models.SessionSettings `json:"settings"`
	HostID       uuid.UUID              `json:"host_id"`
	Participants []ParticipantState     `json:"participants"`
	Prompt       string                 `json:"prompt,omitempty"`
	Hand         []CardState            `json:"hand,omitempty"`
	Submissions  []SubmissionState      `json:"submissions,omitempty"`
	Timer        *gametimer.Snapshot    `json:"timer,omitempty"`
	HasSubmitted bool                   `json:"has_submitted"`
	HasVoted     bool                   `json:"has_voted"`
}

// State builds a snapshot for one participant. Pass uuid.Nil for a
// spectator view with no hand.
func (r *SessionRuntime) State(ctx context.Context, participantID uuid.UUID) (*SessionState, error) {
	var state *SessionState
	err := r.do(ctx, func(ctx context.Context) error {
		s := &SessionState{
			SessionID:    r.session.ID,
			RoomCode:     r.session.RoomCode,
			Phase:        r.machine.Current(),
			Round:        r.session.Round,
			Settings:     r.session.Settings,
			HostID:       r.session.HostID,
			Prompt:       r.promptText,
			HasSubmitted: r.rounds.HasSubmitted(participantID),
			HasVoted:     r.rounds.HasVoted(participantID),
		}

		for _, p := range r.roster.Participants() {
			s.Participants = append(s.Participants, ParticipantState{
				ID:        p.ID,
				Name:      p.Name,
				Score:     p.Score,
				Connected: p.Connected,
				IsHost:    p.ID == r.session.HostID,
			})
		}

		for _, c := range r.hands[participantID] {
			s.Hand = append(s.Hand, CardState{ID: c.ID, Text: c.Text})
		}

		current := s.Phase
		if current == models.PhaseVoting || current == models.PhaseResults {
			revealed := current == models.PhaseResults
			for _, sub := range r.rounds.Submissions() {
				entry := SubmissionState{
					ID:   sub.ID,
					Mine: sub.ParticipantID == participantID,
				}
				for _, cardID := range sub.ResponseCardIDs {
					if c, ok := r.roundCards[cardID]; ok {
						entry.ResponseTexts = append(entry.ResponseTexts, c.Text)
					}
				}
				if revealed {
					votes := sub.Votes
					author := sub.ParticipantID
					entry.Votes = &votes
					entry.AuthorID = &author
				}
				s.Submissions = append(s.Submissions, entry)
			}
		}

		if snap := r.timer.Snapshot(); snap.Active {
			s.Timer = &snap
		}

		state = s
		return nil
	})
	return state, err
}
