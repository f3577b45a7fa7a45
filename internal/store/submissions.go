package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

func (q *Queries) CreateSubmission(ctx context.Context, s *models.Submission) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO submissions (id, session_id, round, participant_id, prompt_card_id, response_card_ids, votes, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.SessionID, s.Round, s.ParticipantID, s.PromptCardID, pq.Array(s.ResponseCardIDs), s.Votes, s.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (q *Queries) ListSubmissionsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Submission, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, round, participant_id, prompt_card_id, response_card_ids, votes, submitted_at
		FROM submissions WHERE session_id = $1 AND round = $2 ORDER BY submitted_at`,
		sessionID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		var s models.Submission
		var responseIDs []string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Round, &s.ParticipantID, &s.PromptCardID, pq.Array(&responseIDs), &s.Votes, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		for _, raw := range responseIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("parse response card id: %w", err)
			}
			s.ResponseCardIDs = append(s.ResponseCardIDs, id)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateSubmissionVotes(ctx context.Context, id uuid.UUID, votes int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE submissions SET votes = $2 WHERE id = $1`, id, votes)
	if err != nil {
		return fmt.Errorf("update submission votes: %w", err)
	}
	return nil
}

func (q *Queries) CreateVote(ctx context.Context, v *models.Vote) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO votes (session_id, round, participant_id, submission_id)
		VALUES ($1, $2, $3, $4)`,
		v.SessionID, v.Round, v.ParticipantID, v.SubmissionID,
	)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (q *Queries) ListVotesForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Vote, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT session_id, round, participant_id, submission_id
		FROM votes WHERE session_id = $1 AND round = $2`,
		sessionID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var out []*models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.SessionID, &v.Round, &v.ParticipantID, &v.SubmissionID); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
