package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

type fakeSessionStore struct {
	session     *models.Session
	participant *models.Participant
	connected   map[uuid.UUID]bool
	getErr      error
}

func (f *fakeSessionStore) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}

func (f *fakeSessionStore) GetParticipant(_ context.Context, _, _ uuid.UUID) (*models.Participant, error) {
	return f.participant, nil
}

func (f *fakeSessionStore) SetParticipantConnected(_ context.Context, id uuid.UUID, connected bool) error {
	if f.connected == nil {
		f.connected = make(map[uuid.UUID]bool)
	}
	f.connected[id] = connected
	return nil
}

func TestRecoverSessionState(t *testing.T) {
	sid, pid := uuid.New(), uuid.New()
	store := &fakeSessionStore{
		session:     &models.Session{ID: sid, Phase: models.PhaseVoting},
		participant: &models.Participant{ID: pid, SessionID: sid, Connected: false},
	}

	t.Run("synchronized", func(t *testing.T) {
		expected := models.PhaseVoting
		state, err := RecoverSessionState(context.Background(), store, sid, pid, &expected)
		require.NoError(t, err)
		assert.True(t, state.Synchronized)
		assert.True(t, state.Participant.Connected, "participant re-marked connected")
		assert.True(t, store.connected[pid])
	})

	t.Run("stale local phase", func(t *testing.T) {
		expected := models.PhaseSubmission
		state, err := RecoverSessionState(context.Background(), store, sid, pid, &expected)
		require.NoError(t, err)
		assert.False(t, state.Synchronized, "caller must reconcile instead of trusting its snapshot")
		assert.Equal(t, models.PhaseVoting, state.Session.Phase)
	})

	t.Run("no expectation", func(t *testing.T) {
		state, err := RecoverSessionState(context.Background(), store, sid, pid, nil)
		require.NoError(t, err)
		assert.True(t, state.Synchronized)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		broken := &fakeSessionStore{getErr: errors.New("connection refused")}
		_, err := RecoverSessionState(context.Background(), broken, sid, pid, nil)
		assert.Error(t, err)
	})
}
