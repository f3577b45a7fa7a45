package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/sqlutil"
)

func (q *Queries) CreateCards(ctx context.Context, cards []models.Card) error {
	ids := make([]uuid.UUID, len(cards))
	sessionIDs := make([]uuid.UUID, len(cards))
	rounds := make([]int64, len(cards))
	kinds := make([]string, len(cards))
	texts := make([]string, len(cards))
	owners := make([]uuid.NullUUID, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
		sessionIDs[i] = c.SessionID
		rounds[i] = int64(c.Round)
		kinds[i] = string(c.Kind)
		texts[i] = c.Text
		owners[i] = sqlutil.NullUUID(c.OwnerID)
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO cards (id, session_id, round, kind, text, owner_id)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::bigint[], $4::text[], $5::text[], $6::uuid[])`,
		pq.Array(ids), pq.Array(sessionIDs), pq.Array(rounds), pq.Array(kinds), pq.Array(texts), pq.Array(owners),
	)
	if err != nil {
		return fmt.Errorf("insert cards: %w", err)
	}
	return nil
}

func (q *Queries) ListCardsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]models.Card, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, round, kind, text, owner_id
		FROM cards WHERE session_id = $1 AND round = $2 ORDER BY id`,
		sessionID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		var c models.Card
		var kind string
		var owner uuid.NullUUID
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Round, &kind, &c.Text, &owner); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Kind = models.CardKind(kind)
		c.OwnerID = sqlutil.UUIDPtr(owner)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) SetCardOwner(ctx context.Context, cardID, ownerID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `UPDATE cards SET owner_id = $2 WHERE id = $1`, cardID, ownerID)
	if err != nil {
		return fmt.Errorf("set card owner: %w", err)
	}
	return nil
}
