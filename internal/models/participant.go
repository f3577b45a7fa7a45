package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxDisplayNameLen caps participant display names.
const MaxDisplayNameLen = 50

// Participant represents a joined player, host or not.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}
