package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is a participant's prompt+response combination for a round.
type Submission struct {
	ID              uuid.UUID   `json:"id"`
	SessionID       uuid.UUID   `json:"session_id"`
	Round           int         `json:"round"`
	ParticipantID   uuid.UUID   `json:"participant_id"`
	PromptCardID    uuid.UUID   `json:"prompt_card_id"`
	ResponseCardIDs []uuid.UUID `json:"response_card_ids"`
	Votes           int         `json:"votes"`
	SubmittedAt     time.Time   `json:"submitted_at"`
}

// Vote records one participant voting for one submission in a round.
type Vote struct {
	SessionID     uuid.UUID `json:"session_id"`
	Round         int       `json:"round"`
	ParticipantID uuid.UUID `json:"participant_id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
}
