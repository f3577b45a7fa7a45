package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/sqlutil"
)

const sessionColumns = `id, room_code, phase, round, settings, host_id, created_at, updated_at`

func (q *Queries) CreateSession(ctx context.Context, s *models.Session) error {
	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return fmt.Errorf("marshal session settings: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO sessions (id, room_code, phase, round, settings, host_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		s.ID, s.RoomCode, string(s.Phase), s.Round, settings, sqlutil.NullableID(s.HostID), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (q *Queries) GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE room_code = upper($1)`, code)
	return scanSession(row)
}

// ListSessions returns every persisted session, used to restore runtimes
// after a process restart.
func (q *Queries) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateSessionPhase(ctx context.Context, id uuid.UUID, phase models.Phase, round int, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE sessions SET phase = $2, round = $3, updated_at = $4 WHERE id = $1`,
		id, string(phase), round, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session phase: %w", err)
	}
	return nil
}

func (q *Queries) UpdateSessionSettings(ctx context.Context, id uuid.UUID, settings models.SessionSettings, updatedAt time.Time) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal session settings: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		UPDATE sessions SET settings = $2, updated_at = $3 WHERE id = $1`,
		id, raw, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session settings: %w", err)
	}
	return nil
}

func (q *Queries) UpdateSessionHost(ctx context.Context, id, hostID uuid.UUID, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE sessions SET host_id = $2, updated_at = $3 WHERE id = $1`,
		id, hostID, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session host: %w", err)
	}
	return nil
}

// DeleteRoundData clears cards, submissions, and votes, used on full reset.
func (q *Queries) DeleteRoundData(ctx context.Context, sessionID uuid.UUID) error {
	for _, table := range []string{"votes", "submissions", "cards"} {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var phase string
	var settings []byte
	var hostID uuid.NullUUID
	if err := row.Scan(&s.ID, &s.RoomCode, &phase, &s.Round, &settings, &hostID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(settings, &s.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal session settings: %w", err)
	}
	s.Phase = models.Phase(phase)
	if hostID.Valid {
		s.HostID = hostID.UUID
	}
	return &s, nil
}
