package cards

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func TestFallbackGeneratorProducesEnoughResponses(t *testing.T) {
	g, err := NewFallbackGenerator()
	require.NoError(t, err)

	for _, count := range []int{3, 5, 8, 20} {
		deal, err := g.Generate(context.Background(), Request{
			SessionID:        uuid.New(),
			Round:            1,
			ParticipantCount: count,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, deal.Prompt)
		assert.GreaterOrEqual(t, len(deal.Responses), count*ResponsesPerParticipant,
			"%d participants need %d responses", count, count*ResponsesPerParticipant)
	}
}

func TestFallbackGeneratorDeterministic(t *testing.T) {
	g, err := NewFallbackGenerator()
	require.NoError(t, err)

	req := Request{SessionID: uuid.New(), Round: 3, ParticipantCount: 4}
	a, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same session and round must regenerate the same deal (-first +second):\n%s", diff)
	}

	req.Round = 4
	c, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Responses, c.Responses, "a new round reshuffles")
}

type failingGenerator struct{ calls int }

func (f *failingGenerator) Generate(context.Context, Request) (*Deal, error) {
	f.calls++
	return nil, ErrContentGeneration
}

func TestWithFallback(t *testing.T) {
	fb, err := NewFallbackGenerator()
	require.NoError(t, err)

	primary := &failingGenerator{}
	g := WithFallback(primary, fb)

	deal, err := g.Generate(context.Background(), Request{SessionID: uuid.New(), Round: 1, ParticipantCount: 3})
	require.NoError(t, err, "fallback must absorb primary failure")
	assert.Equal(t, 1, primary.calls)
	assert.GreaterOrEqual(t, len(deal.Responses), 18)
}

func makePool(n int) []models.Card {
	sid := uuid.New()
	pool := make([]models.Card, n)
	for i := range pool {
		pool[i] = models.Card{ID: uuid.New(), SessionID: sid, Round: 1, Kind: models.CardKindResponse}
	}
	return pool
}

func TestDistribute(t *testing.T) {
	pids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	pool := makePool(20)

	hands, err := Distribute(pool, pids, 6)
	require.NoError(t, err)
	require.Len(t, hands, 3)

	seen := make(map[uuid.UUID]bool)
	for _, pid := range pids {
		hand := hands[pid]
		require.Len(t, hand, 6)
		for _, card := range hand {
			require.NotNil(t, card.OwnerID)
			assert.Equal(t, pid, *card.OwnerID)
			assert.False(t, seen[card.ID], "card dealt twice")
			seen[card.ID] = true
		}
	}
}

func TestDistributeInsufficientCards(t *testing.T) {
	pids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	_, err := Distribute(makePool(17), pids, 6)
	assert.True(t, errors.Is(err, ErrInsufficientCards))
}

func TestBuildRound(t *testing.T) {
	sid := uuid.New()
	prompt, responses := BuildRound(sid, 2, &Deal{
		Prompt:    "____ again?",
		Responses: []string{"a", "b", "c"},
	})
	assert.Equal(t, models.CardKindPrompt, prompt.Kind)
	assert.Equal(t, 2, prompt.Round)
	assert.Nil(t, prompt.OwnerID)
	require.Len(t, responses, 3)
	for _, c := range responses {
		assert.Equal(t, models.CardKindResponse, c.Kind)
		assert.Equal(t, sid, c.SessionID)
	}
}
