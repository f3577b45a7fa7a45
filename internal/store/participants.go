package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func (q *Queries) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO participants (id, session_id, name, score, connected, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.SessionID, p.Name, p.Score, p.Connected, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (q *Queries) GetParticipant(ctx context.Context, sessionID, id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	err := q.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, score, connected, joined_at
		FROM participants WHERE session_id = $1 AND id = $2`,
		sessionID, id,
	).Scan(&p.ID, &p.SessionID, &p.Name, &p.Score, &p.Connected, &p.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

func (q *Queries) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, name, score, connected, joined_at
		FROM participants WHERE session_id = $1 ORDER BY joined_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Name, &p.Score, &p.Connected, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateParticipantScore(ctx context.Context, id uuid.UUID, score int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE participants SET score = $2 WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("update participant score: %w", err)
	}
	return nil
}

func (q *Queries) SetParticipantConnected(ctx context.Context, id uuid.UUID, connected bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE participants SET connected = $2 WHERE id = $1`, id, connected)
	if err != nil {
		return fmt.Errorf("set participant connected: %w", err)
	}
	return nil
}

// ResetScores zeroes every participant's score, used on full session reset.
func (q *Queries) ResetScores(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `UPDATE participants SET score = 0 WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("reset scores: %w", err)
	}
	return nil
}
