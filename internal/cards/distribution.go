package cards

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// ErrInsufficientCards means the pool cannot cover every participant's hand.
var ErrInsufficientCards = errors.New("insufficient cards")

// Distribute shuffles the response pool and deals perParticipant cards to
// each participant, setting card ownership. Leftover cards stay unowned.
func Distribute(pool []models.Card, participantIDs []uuid.UUID, perParticipant int) (map[uuid.UUID][]models.Card, error) {
	need := len(participantIDs) * perParticipant
	if len(pool) < need {
		return nil, fmt.Errorf("%w: have %d, need %d for %d participants", ErrInsufficientCards, len(pool), need, len(participantIDs))
	}

	shuffled := append([]models.Card(nil), pool...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	hands := make(map[uuid.UUID][]models.Card, len(participantIDs))
	next := 0
	for _, pid := range participantIDs {
		hand := make([]models.Card, 0, perParticipant)
		for i := 0; i < perParticipant; i++ {
			card := shuffled[next]
			next++
			owner := pid
			card.OwnerID = &owner
			hand = append(hand, card)
		}
		hands[pid] = hand
	}
	return hands, nil
}
