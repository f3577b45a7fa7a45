package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/cards"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/lifecycle"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/resilience"
	"github.com/kyisaiah47/deep-cut-sub000/internal/roomcode"
)

var ErrSessionNotFound = errors.New("session not found")

// DefaultSettings is applied where a create request leaves a field zero.
func DefaultSettings() models.SessionSettings {
	return models.SessionSettings{
		TargetScore:         5,
		MaxParticipants:     8,
		MinParticipants:     3,
		SubmissionTimerSec:  90,
		VotingTimerSec:      45,
		CardsPerParticipant: cards.ResponsesPerParticipant,
		HostPolicy:          models.HostPolicyAutoJoinOrder,
	}
}

// Registry owns every live SessionRuntime. Sessions not in memory are
// restored from storage on first access.
type Registry struct {
	store     Store
	generator cards.Generator
	clock     gameclock.Clock
	cfg       Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*SessionRuntime
	byCode   map[string]uuid.UUID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(st Store, gen cards.Generator, clock gameclock.Clock, cfg Config) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:     st,
		generator: gen,
		clock:     clock,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*SessionRuntime),
		byCode:    make(map[string]uuid.UUID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// CreateSession persists a fresh lobby and starts its runtime.
func (g *Registry) CreateSession(ctx context.Context, settings models.SessionSettings) (*models.Session, error) {
	defaults := g.cfg.Defaults
	if defaults == (models.SessionSettings{}) {
		defaults = DefaultSettings()
	}
	if settings.TargetScore <= 0 {
		settings.TargetScore = defaults.TargetScore
	}
	if settings.MaxParticipants <= 0 {
		settings.MaxParticipants = defaults.MaxParticipants
	}
	if settings.MinParticipants <= 0 {
		settings.MinParticipants = defaults.MinParticipants
	}
	if settings.SubmissionTimerSec <= 0 {
		settings.SubmissionTimerSec = defaults.SubmissionTimerSec
	}
	if settings.VotingTimerSec <= 0 {
		settings.VotingTimerSec = defaults.VotingTimerSec
	}
	if settings.CardsPerParticipant <= 0 {
		settings.CardsPerParticipant = defaults.CardsPerParticipant
	}
	if settings.HostPolicy == "" {
		settings.HostPolicy = defaults.HostPolicy
	}

	now := g.clock.Now()
	session := &models.Session{
		ID:        uuid.New(),
		RoomCode:  roomcode.New(),
		Phase:     models.PhaseLobby,
		Round:     1,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := g.store.Transact(ctx, func(tx Tx) error {
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	rt := NewSessionRuntime(session, g.store, g.generator, g.clock, g.cfg)
	g.register(rt, session)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("room_code", session.RoomCode).
		Msg("session created")

	return session, nil
}

func (g *Registry) register(rt *SessionRuntime, session *models.Session) {
	g.mu.Lock()
	g.sessions[session.ID] = rt
	g.byCode[session.RoomCode] = session.ID
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		rt.Run(g.ctx)
	}()
}

// Get returns the runtime for a session, restoring it from storage if the
// process restarted since it was last touched.
func (g *Registry) Get(ctx context.Context, sessionID uuid.UUID) (*SessionRuntime, error) {
	g.mu.RLock()
	rt, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if ok {
		return rt, nil
	}

	session, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return g.restore(ctx, session)
}

// GetByRoomCode resolves a room code to its runtime.
func (g *Registry) GetByRoomCode(ctx context.Context, code string) (*SessionRuntime, error) {
	if !roomcode.Valid(code) {
		return nil, ErrSessionNotFound
	}
	g.mu.RLock()
	id, ok := g.byCode[code]
	g.mu.RUnlock()
	if ok {
		return g.Get(ctx, id)
	}

	session, err := g.store.GetSessionByRoomCode(ctx, code)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return g.restore(ctx, session)
}

func (g *Registry) restore(ctx context.Context, session *models.Session) (*SessionRuntime, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// lost the race with another restore
	if rt, ok := g.sessions[session.ID]; ok {
		return rt, nil
	}

	rt, err := Restore(ctx, g.store, session, g.generator, g.clock, g.cfg)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", session.ID, err)
	}
	g.sessions[session.ID] = rt
	g.byCode[session.RoomCode] = session.ID

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		rt.Run(g.ctx)
	}()

	log.Info().
		Str("session_id", session.ID.String()).
		Str("phase", string(session.Phase)).
		Msg("session restored")

	return rt, nil
}

// Shutdown stops all runtimes and waits for them to drain.
func (g *Registry) Shutdown() {
	g.cancel()
	g.wg.Wait()
}

// HandleConnect implements gateway.PresenceHandler.
func (g *Registry) HandleConnect(sessionID, participantID uuid.UUID) {
	ctx := context.Background()
	rt, err := g.Get(ctx, sessionID)
	if err != nil {
		return
	}
	if err := rt.SetConnected(ctx, participantID, true); err != nil {
		log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Str("participant_id", participantID.String()).
			Msg("failed to mark participant connected")
	}
}

// HandleDisconnect implements gateway.PresenceHandler.
func (g *Registry) HandleDisconnect(sessionID, participantID uuid.UUID) {
	ctx := context.Background()
	rt, err := g.Get(ctx, sessionID)
	if err != nil {
		return
	}
	if err := rt.SetConnected(ctx, participantID, false); err != nil {
		log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Str("participant_id", participantID.String()).
			Msg("failed to mark participant disconnected")
	}
}

// resyncStore adapts the registry for state recovery. Reads go straight
// to storage; the connected flip is routed through the session actor so
// presence bookkeeping (host handover included) stays in one place.
type resyncStore struct {
	store Store
	rt    *SessionRuntime
}

func (s *resyncStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

func (s *resyncStore) GetParticipant(ctx context.Context, sessionID, participantID uuid.UUID) (*models.Participant, error) {
	participants, err := s.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p.ID == participantID {
			return p, nil
		}
	}
	return nil, lifecycle.ErrNotMember
}

func (s *resyncStore) SetParticipantConnected(ctx context.Context, participantID uuid.UUID, connected bool) error {
	return s.rt.SetConnected(ctx, participantID, connected)
}

// Resync hands a reconnecting client the authoritative session and
// participant records and re-marks it connected. ExpectedPhase, when
// given, reports whether the client's assumed phase still holds.
func (g *Registry) Resync(ctx context.Context, sessionID, participantID uuid.UUID, expectedPhase *models.Phase) (*resilience.RecoveredState, error) {
	rt, err := g.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return resilience.RecoverSessionState(ctx, &resyncStore{store: g.store, rt: rt}, sessionID, participantID, expectedPhase)
}

// Snapshot implements gateway.StateProvider.
func (g *Registry) Snapshot(ctx context.Context, sessionID, participantID uuid.UUID) (any, error) {
	rt, err := g.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rt.State(ctx, participantID)
}
