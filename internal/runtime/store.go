package runtime

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/events"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/outbox"
	"github.com/kyisaiah47/deep-cut-sub000/internal/sqlutil"
	"github.com/kyisaiah47/deep-cut-sub000/internal/store"
)

// Tx is the slice of storage a session runtime mutates in one
// transaction. Outbox rows go through the same Tx so an event can never
// outrun the state change it describes.
type Tx interface {
	CreateSession(ctx context.Context, s *models.Session) error
	UpdateSessionPhase(ctx context.Context, id uuid.UUID, phase models.Phase, round int, updatedAt time.Time) error
	UpdateSessionSettings(ctx context.Context, id uuid.UUID, settings models.SessionSettings, updatedAt time.Time) error
	UpdateSessionHost(ctx context.Context, id, hostID uuid.UUID, updatedAt time.Time) error
	DeleteRoundData(ctx context.Context, sessionID uuid.UUID) error

	CreateParticipant(ctx context.Context, p *models.Participant) error
	SetParticipantConnected(ctx context.Context, id uuid.UUID, connected bool) error
	UpdateParticipantScore(ctx context.Context, id uuid.UUID, score int) error
	ResetScores(ctx context.Context, sessionID uuid.UUID) error

	CreateCards(ctx context.Context, cards []models.Card) error
	CreateSubmission(ctx context.Context, s *models.Submission) error
	UpdateSubmissionVotes(ctx context.Context, id uuid.UUID, votes int) error
	CreateVote(ctx context.Context, v *models.Vote) error

	UpsertTimer(ctx context.Context, t models.Timer) error
	DeactivateTimer(ctx context.Context, sessionID uuid.UUID) error

	InsertEvent(ctx context.Context, e events.Event) error
}

// Store is what the runtime needs from persistence: transactional writes
// plus the reads used to restore a session after restart.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error

	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error)
	ListCardsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]models.Card, error)
	ListSubmissionsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Submission, error)
	ListVotesForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Vote, error)
	GetTimer(ctx context.Context, sessionID uuid.UUID) (models.Timer, error)
}

// sqlTx bundles the query wrapper and the outbox repository bound to one
// open transaction.
type sqlTx struct {
	*store.Queries
	outbox *outbox.Repository
}

func (t *sqlTx) InsertEvent(ctx context.Context, e events.Event) error {
	return t.outbox.Insert(ctx, e)
}

// SQLStore backs the runtime with Postgres.
type SQLStore struct {
	*store.Queries
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{Queries: store.New(db), db: db}
}

func (s *SQLStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return sqlutil.Run(ctx, s.db,
		func(tx *sql.Tx) *sqlTx {
			return &sqlTx{
				Queries: store.New(tx),
				outbox:  outbox.NewRepository(tx),
			}
		},
		func(q *sqlTx) error { return fn(q) },
	)
}
