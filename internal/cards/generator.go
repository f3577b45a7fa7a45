// Package cards covers round content: the generator contract, the
// deterministic offline fallback, and dealing response cards out to
// participants.
package cards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// ResponsesPerParticipant is the minimum number of response texts a
// generator must produce per participant so dealing never runs short.
const ResponsesPerParticipant = 6

// ErrContentGeneration marks a generator failure. Retryable, but the
// session never stalls on it: the fallback generator always answers.
var ErrContentGeneration = errors.New("content generation failed")

// Request asks a generator for one round's worth of card text.
type Request struct {
	SessionID        uuid.UUID
	Round            int
	ParticipantCount int
	Theme            string
}

// Deal is one round's generated text: a single prompt and at least
// ParticipantCount * ResponsesPerParticipant responses.
type Deal struct {
	Prompt    string
	Responses []string
}

// Generator produces card text for a round. Implementations live outside
// the coordination core (an LLM service, a curated deck); the core only
// depends on this contract.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Deal, error)
}

// WithFallback wraps a primary generator so that any failure falls back to
// the deterministic local generator instead of surfacing.
func WithFallback(primary Generator, fallback *FallbackGenerator) Generator {
	return &fallbackChain{primary: primary, fallback: fallback}
}

type fallbackChain struct {
	primary  Generator
	fallback *FallbackGenerator
}

func (c *fallbackChain) Generate(ctx context.Context, req Request) (*Deal, error) {
	if c.primary != nil {
		deal, err := c.primary.Generate(ctx, req)
		if err == nil {
			return deal, nil
		}
		log.Warn().
			Err(err).
			Str("session_id", req.SessionID.String()).
			Int("round", req.Round).
			Msg("content generator failed, using fallback deck")
	}
	return c.fallback.Generate(ctx, req)
}

// BuildRound turns a deal into card records for a round. The prompt card
// is unowned; response cards stay unowned until distribution.
func BuildRound(sessionID uuid.UUID, round int, deal *Deal) (models.Card, []models.Card) {
	prompt := models.Card{
		ID:        uuid.New(),
		SessionID: sessionID,
		Round:     round,
		Kind:      models.CardKindPrompt,
		Text:      deal.Prompt,
	}
	responses := make([]models.Card, 0, len(deal.Responses))
	for _, text := range deal.Responses {
		responses = append(responses, models.Card{
			ID:        uuid.New(),
			SessionID: sessionID,
			Round:     round,
			Kind:      models.CardKindResponse,
			Text:      text,
		})
	}
	return prompt, responses
}
