package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kyisaiah47/deep-cut-sub000/internal/events"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to an open transaction so event rows commit
// with the state change they describe.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// Insert appends one event row. A schema trigger notifies the relay.
func (r *Repository) Insert(ctx context.Context, e events.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (id, session_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.SessionID, string(e.Type), []byte(e.Payload), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", e.Type, err)
	}
	return nil
}

// FetchUnsent claims up to limit unsent rows, skipping rows another relay
// instance already holds.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FetchByID loads one outbox row, sent or not.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM outbox
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return Event{}, fmt.Errorf("fetch outbox event %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Event{}, err
		}
		return Event{}, sql.ErrNoRows
	}
	var e Event
	if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
		return Event{}, fmt.Errorf("scan outbox event: %w", err)
	}
	return e, nil
}

// MarkSent stamps the given rows as relayed.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark outbox events sent: %w", err)
	}
	return nil
}
