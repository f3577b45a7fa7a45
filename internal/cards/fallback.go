package cards

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
)

//go:embed assets/deck.json
var deckFS embed.FS

type deck struct {
	Prompts   []string `json:"prompts"`
	Responses []string `json:"responses"`
}

// FallbackGenerator deals from the embedded offline deck. Output is
// deterministic per (session, round): a reconnecting process regenerates
// the identical deal, so recovery never forks card text.
type FallbackGenerator struct {
	deck deck
}

// NewFallbackGenerator loads the embedded deck.
func NewFallbackGenerator() (*FallbackGenerator, error) {
	data, err := deckFS.ReadFile("assets/deck.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded deck: %w", err)
	}
	var d deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse embedded deck: %w", err)
	}
	if len(d.Prompts) == 0 || len(d.Responses) == 0 {
		return nil, fmt.Errorf("embedded deck is empty")
	}
	return &FallbackGenerator{deck: d}, nil
}

// Generate picks a prompt and enough responses for every participant,
// seeded by session and round.
func (g *FallbackGenerator) Generate(_ context.Context, req Request) (*Deal, error) {
	rng := rand.New(rand.NewSource(dealSeed(req)))

	need := req.ParticipantCount * ResponsesPerParticipant
	responses := make([]string, 0, need)
	order := rng.Perm(len(g.deck.Responses))
	for len(responses) < need {
		for _, i := range order {
			responses = append(responses, g.deck.Responses[i])
			if len(responses) == need {
				break
			}
		}
		// Deck smaller than the table: cycle again in the same order.
	}

	return &Deal{
		Prompt:    g.deck.Prompts[rng.Intn(len(g.deck.Prompts))],
		Responses: responses,
	}, nil
}

func dealSeed(req Request) int64 {
	h := fnv.New64a()
	h.Write(req.SessionID[:])
	fmt.Fprintf(h, "/%d/%s", req.Round, req.Theme)
	return int64(h.Sum64())
}
