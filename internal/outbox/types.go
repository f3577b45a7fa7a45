// Package outbox implements the transactional outbox relaying session
// events to the broadcast transport. Event rows commit in the same
// transaction as the state change they describe, so no observer can see a
// broadcast before the mutation is durable.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is an outbox row for the relay layer.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
