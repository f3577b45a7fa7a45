package models

import "github.com/google/uuid"

// CardKind defines the kind of a card.
type CardKind string

const (
	CardKindPrompt   CardKind = "PROMPT"
	CardKindResponse CardKind = "RESPONSE"
)

// Card is one prompt or response text generated for a round.
// Cards are immutable once created; OwnerID is set when the card is
// distributed to a participant.
type Card struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Round     int        `json:"round"`
	Kind      CardKind   `json:"kind"`
	Text      string     `json:"text"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
}
