package lifecycle

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func newManager(t *testing.T, policy models.HostPolicy, names ...string) (*Manager, *models.Session, []*models.Participant) {
	t.Helper()
	session := &models.Session{
		ID: uuid.New(),
		Settings: models.SessionSettings{
			MaxParticipants: 8,
			HostPolicy:      policy,
		},
	}
	m := New(session, gameclock.NewFake())
	var ps []*models.Participant
	for _, name := range names {
		p, err := m.Join(name)
		require.NoError(t, err)
		ps = append(ps, p)
	}
	return m, session, ps
}

func TestJoin(t *testing.T) {
	m, session, ps := newManager(t, models.HostPolicyManual, "alice", "bob")

	assert.Equal(t, ps[0].ID, session.HostID, "first join becomes host")
	assert.True(t, ps[1].Connected)
	assert.Equal(t, 2, m.ConnectedCount())
	assert.Equal(t, []*models.Participant{ps[0], ps[1]}, m.Participants())
}

func TestJoinLimits(t *testing.T) {
	m, _, _ := newManager(t, models.HostPolicyManual, "a", "b")
	m.session.Settings.MaxParticipants = 2

	_, err := m.Join("c")
	assert.ErrorIs(t, err, ErrSessionFull)

	m.session.Settings.MaxParticipants = 8
	_, err = m.Join(strings.Repeat("x", models.MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestSetConnectedKeepsRecord(t *testing.T) {
	m, _, ps := newManager(t, models.HostPolicyManual, "alice", "bob")

	require.NoError(t, m.SetConnected(ps[1].ID, false))
	assert.Equal(t, 1, m.ConnectedCount())
	_, ok := m.Get(ps[1].ID)
	assert.True(t, ok, "disconnected participant stays on the roster for rejoin")

	require.NoError(t, m.SetConnected(ps[1].ID, true))
	assert.Equal(t, 2, m.ConnectedCount())

	assert.ErrorIs(t, m.SetConnected(uuid.New(), true), ErrNotMember)
}

func TestTransferHost(t *testing.T) {
	m, session, ps := newManager(t, models.HostPolicyManual, "alice", "bob", "carol")

	t.Run("non-host caller", func(t *testing.T) {
		err := m.TransferHost(ps[1].ID, ps[2].ID)
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, ps[0].ID, session.HostID, "host_id unchanged after denial")
	})

	t.Run("target not a member", func(t *testing.T) {
		err := m.TransferHost(ps[0].ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("target disconnected", func(t *testing.T) {
		require.NoError(t, m.SetConnected(ps[2].ID, false))
		err := m.TransferHost(ps[0].ID, ps[2].ID)
		assert.ErrorIs(t, err, ErrNotEligible)
		require.NoError(t, m.SetConnected(ps[2].ID, true))
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, m.TransferHost(ps[0].ID, ps[1].ID))
		assert.Equal(t, ps[1].ID, session.HostID)
	})
}

func TestHandleHostDisconnect(t *testing.T) {
	t.Run("manual policy does nothing", func(t *testing.T) {
		m, session, ps := newManager(t, models.HostPolicyManual, "alice", "bob")
		require.NoError(t, m.SetConnected(ps[0].ID, false))
		_, transferred := m.HandleHostDisconnect()
		assert.False(t, transferred)
		assert.Equal(t, ps[0].ID, session.HostID)
	})

	t.Run("auto policy picks first connected by join order", func(t *testing.T) {
		m, session, ps := newManager(t, models.HostPolicyAutoJoinOrder, "alice", "bob", "carol")
		require.NoError(t, m.SetConnected(ps[0].ID, false))
		require.NoError(t, m.SetConnected(ps[1].ID, false))
		newHost, transferred := m.HandleHostDisconnect()
		assert.True(t, transferred)
		assert.Equal(t, ps[2].ID, newHost)
		assert.Equal(t, ps[2].ID, session.HostID)
	})

	t.Run("nobody eligible", func(t *testing.T) {
		m, _, ps := newManager(t, models.HostPolicyAutoJoinOrder, "alice")
		require.NoError(t, m.SetConnected(ps[0].ID, false))
		_, transferred := m.HandleHostDisconnect()
		assert.False(t, transferred)
	})
}

func TestCanPerform(t *testing.T) {
	m, _, ps := newManager(t, models.HostPolicyManual, "alice", "bob", "carol")
	host, guest := ps[0].ID, ps[1].ID

	tests := []struct {
		name   string
		action Action
		who    uuid.UUID
		view   RoundView
		want   Capability
	}{
		{"host starts from lobby", ActionStartGame, host, RoundView{Phase: models.PhaseLobby}, Capability{Allowed: true}},
		{"guest cannot start", ActionStartGame, guest, RoundView{Phase: models.PhaseLobby}, Capability{Reason: ReasonNotHost}},
		{"host cannot start mid-game", ActionStartGame, host, RoundView{Phase: models.PhaseVoting}, Capability{Reason: ReasonWrongPhase}},
		{"guest cannot change settings", ActionChangeSettings, guest, RoundView{Phase: models.PhaseLobby}, Capability{Reason: ReasonNotHost}},
		{"submit in submission phase", ActionSubmit, guest, RoundView{Phase: models.PhaseSubmission}, Capability{Allowed: true}},
		{"submit twice", ActionSubmit, guest, RoundView{Phase: models.PhaseSubmission, HasSubmitted: true}, Capability{Reason: ReasonAlreadySubmitted}},
		{"submit outside phase", ActionSubmit, guest, RoundView{Phase: models.PhaseLobby}, Capability{Reason: ReasonWrongPhase}},
		{"vote in voting phase", ActionVote, guest, RoundView{Phase: models.PhaseVoting}, Capability{Allowed: true}},
		{"vote twice", ActionVote, guest, RoundView{Phase: models.PhaseVoting, HasVoted: true}, Capability{Reason: ReasonAlreadyVoted}},
		{"stranger", ActionVote, uuid.New(), RoundView{Phase: models.PhaseVoting}, Capability{Reason: ReasonNotMember}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.CanPerform(tt.action, tt.who, tt.view))
		})
	}
}
