package resilience

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// SessionStore defines what state recovery needs from persistence.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	GetParticipant(ctx context.Context, sessionID, participantID uuid.UUID) (*models.Participant, error)
	SetParticipantConnected(ctx context.Context, participantID uuid.UUID, connected bool) error
}

// RecoveredState is the authoritative snapshot handed back after a
// reconnect. Synchronized tells the caller whether its assumed phase still
// matches reality; if not, local state must be reconciled rather than
// trusted.
type RecoveredState struct {
	Session      *models.Session     `json:"session"`
	Participant  *models.Participant `json:"participant"`
	Synchronized bool                `json:"synchronized"`
}

// RecoverSessionState refetches the authoritative session and participant
// records, re-marks the participant connected, and reports whether the
// caller's expected phase matches the authoritative one. A nil
// expectedPhase skips the comparison and reports synchronized.
func RecoverSessionState(ctx context.Context, store SessionStore, sessionID, participantID uuid.UUID, expectedPhase *models.Phase) (*RecoveredState, error) {
	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recover session %s: %w", sessionID, err)
	}
	participant, err := store.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return nil, fmt.Errorf("recover participant %s: %w", participantID, err)
	}
	if err := store.SetParticipantConnected(ctx, participantID, true); err != nil {
		return nil, fmt.Errorf("mark participant connected: %w", err)
	}
	participant.Connected = true

	synchronized := expectedPhase == nil || *expectedPhase == session.Phase
	if !synchronized {
		log.Info().
			Str("session_id", sessionID.String()).
			Str("participant_id", participantID.String()).
			Str("expected_phase", string(*expectedPhase)).
			Str("actual_phase", string(session.Phase)).
			Msg("recovered session out of sync with local state")
	}

	return &RecoveredState{
		Session:      session,
		Participant:  participant,
		Synchronized: synchronized,
	}, nil
}
