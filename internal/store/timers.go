package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/sqlutil"
)

// ErrNoTimer means the session has no persisted timer record.
var ErrNoTimer = errors.New("no timer for session")

func (q *Queries) UpsertTimer(ctx context.Context, t models.Timer) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO timers (session_id, phase, duration_ms, started_at, paused, paused_at, accumulated_pause_ms, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			phase = EXCLUDED.phase,
			duration_ms = EXCLUDED.duration_ms,
			started_at = EXCLUDED.started_at,
			paused = EXCLUDED.paused,
			paused_at = EXCLUDED.paused_at,
			accumulated_pause_ms = EXCLUDED.accumulated_pause_ms,
			active = EXCLUDED.active`,
		t.SessionID, string(t.Phase), t.Duration.Milliseconds(), t.StartedAt,
		t.Paused, sqlutil.NullTime(t.PausedAt), t.AccumulatedPause.Milliseconds(), t.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert timer: %w", err)
	}
	return nil
}

func (q *Queries) GetTimer(ctx context.Context, sessionID uuid.UUID) (models.Timer, error) {
	var t models.Timer
	var phase string
	var durationMs, pauseMs int64
	var pausedAt sql.NullTime
	err := q.db.QueryRowContext(ctx, `
		SELECT session_id, phase, duration_ms, started_at, paused, paused_at, accumulated_pause_ms, active
		FROM timers WHERE session_id = $1`,
		sessionID,
	).Scan(&t.SessionID, &phase, &durationMs, &t.StartedAt, &t.Paused, &pausedAt, &pauseMs, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Timer{}, ErrNoTimer
	}
	if err != nil {
		return models.Timer{}, fmt.Errorf("get timer: %w", err)
	}
	t.Phase = models.Phase(phase)
	t.Duration = time.Duration(durationMs) * time.Millisecond
	t.AccumulatedPause = time.Duration(pauseMs) * time.Millisecond
	t.PausedAt = sqlutil.TimePtr(pausedAt)
	return t, nil
}

func (q *Queries) DeactivateTimer(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `UPDATE timers SET active = false WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deactivate timer: %w", err)
	}
	return nil
}
