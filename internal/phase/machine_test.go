package phase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func enough() Context {
	return Context{ActiveParticipants: 3, MinParticipants: 3, SubmissionCount: 3}
}

func TestFullRoundCycle(t *testing.T) {
	m := NewMachine()
	require.Equal(t, models.PhaseLobby, m.Current())

	steps := []models.Phase{
		models.PhaseDistribution,
		models.PhaseSubmission,
		models.PhaseVoting,
		models.PhaseResults,
		models.PhaseDistribution, // next round
	}
	for _, to := range steps {
		require.NoError(t, m.RequestTransition(m.Current(), to, enough()))
		require.Equal(t, to, m.Current())
	}
}

func TestStaleFromAlwaysFails(t *testing.T) {
	targets := []models.Phase{
		models.PhaseLobby,
		models.PhaseDistribution,
		models.PhaseSubmission,
		models.PhaseVoting,
		models.PhaseResults,
	}
	for _, to := range targets {
		m := NewMachine() // current is lobby
		err := m.RequestTransition(models.PhaseVoting, to, enough())
		var ite *InvalidTransitionError
		require.True(t, errors.As(err, &ite), "target %s", to)
		assert.Equal(t, models.PhaseLobby, m.Current())
	}
}

func TestIllegalTargets(t *testing.T) {
	tests := []struct {
		name string
		from models.Phase
		to   models.Phase
	}{
		{"lobby to submission", models.PhaseLobby, models.PhaseSubmission},
		{"lobby to voting", models.PhaseLobby, models.PhaseVoting},
		{"lobby to results", models.PhaseLobby, models.PhaseResults},
		{"distribution to voting", models.PhaseDistribution, models.PhaseVoting},
		{"distribution to results", models.PhaseDistribution, models.PhaseResults},
		{"submission to distribution", models.PhaseSubmission, models.PhaseDistribution},
		{"submission to results", models.PhaseSubmission, models.PhaseResults},
		{"voting to submission", models.PhaseVoting, models.PhaseSubmission},
		{"results to voting", models.PhaseResults, models.PhaseVoting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Restore(tt.from)
			require.NoError(t, err)
			err = m.RequestTransition(tt.from, tt.to, enough())
			var ite *InvalidTransitionError
			require.True(t, errors.As(err, &ite))
			assert.Equal(t, tt.from, m.Current())
		})
	}
}

func TestResetReachableFromAnywhere(t *testing.T) {
	for _, from := range []models.Phase{
		models.PhaseLobby,
		models.PhaseDistribution,
		models.PhaseSubmission,
		models.PhaseVoting,
		models.PhaseResults,
	} {
		m, err := Restore(from)
		require.NoError(t, err)
		require.NoError(t, m.RequestTransition(from, models.PhaseLobby, Context{}))
		assert.Equal(t, models.PhaseLobby, m.Current())
	}
}

func TestMinParticipantsGatesLobbyExit(t *testing.T) {
	m := NewMachine()
	err := m.RequestTransition(models.PhaseLobby, models.PhaseDistribution, Context{
		ActiveParticipants: 2,
		MinParticipants:    3,
	})
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Contains(t, ite.Reason, "at least 3")
	assert.Equal(t, models.PhaseLobby, m.Current())
}

func TestVotingRequiresAllSubmissions(t *testing.T) {
	m, err := Restore(models.PhaseSubmission)
	require.NoError(t, err)

	err = m.RequestTransition(models.PhaseSubmission, models.PhaseVoting, Context{
		ActiveParticipants: 4,
		MinParticipants:    3,
		SubmissionCount:    3,
	})
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, models.PhaseSubmission, m.Current())

	require.NoError(t, m.RequestTransition(models.PhaseSubmission, models.PhaseVoting, Context{
		ActiveParticipants: 4,
		MinParticipants:    3,
		SubmissionCount:    4,
	}))
	assert.Equal(t, models.PhaseVoting, m.Current())
}

func TestExpiredTimerOpensVotingWithMissingSubmissions(t *testing.T) {
	m, err := Restore(models.PhaseSubmission)
	require.NoError(t, err)

	require.NoError(t, m.RequestTransition(models.PhaseSubmission, models.PhaseVoting, Context{
		ActiveParticipants: 4,
		MinParticipants:    3,
		SubmissionCount:    2,
		TimerExpired:       true,
	}))
	assert.Equal(t, models.PhaseVoting, m.Current())
}

func TestRestoreRejectsUnknownPhase(t *testing.T) {
	_, err := Restore(models.Phase("INTERMISSION"))
	require.Error(t, err)
}
