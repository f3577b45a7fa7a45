// Package runtimetest provides an in-memory runtime.Store so session
// flows can be exercised without Postgres.
package runtimetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/events"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/runtime"
)

var ErrNotFound = errors.New("not found")

// MemStore implements both runtime.Store and runtime.Tx; Transact applies
// fn directly under a lock.
type MemStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*models.Session
	participants map[uuid.UUID]*models.Participant
	cards        []models.Card
	submissions  []*models.Submission
	votes        []*models.Vote
	timers       map[uuid.UUID]models.Timer
	events       []events.Event
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions:     make(map[uuid.UUID]*models.Session),
		participants: make(map[uuid.UUID]*models.Participant),
		timers:       make(map[uuid.UUID]models.Timer),
	}
}

func (m *MemStore) Transact(ctx context.Context, fn func(tx runtime.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *MemStore) CreateSession(ctx context.Context, s *models.Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemStore) UpdateSessionPhase(ctx context.Context, id uuid.UUID, phase models.Phase, round int, updatedAt time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.Phase = phase
		s.Round = round
		s.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MemStore) UpdateSessionSettings(ctx context.Context, id uuid.UUID, settings models.SessionSettings, updatedAt time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.Settings = settings
		s.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MemStore) UpdateSessionHost(ctx context.Context, id, hostID uuid.UUID, updatedAt time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.HostID = hostID
		s.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MemStore) DeleteRoundData(ctx context.Context, sessionID uuid.UUID) error {
	m.cards = nil
	m.submissions = nil
	m.votes = nil
	return nil
}

func (m *MemStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	cp := *p
	m.participants[p.ID] = &cp
	return nil
}

func (m *MemStore) SetParticipantConnected(ctx context.Context, id uuid.UUID, connected bool) error {
	if p, ok := m.participants[id]; ok {
		p.Connected = connected
	}
	return nil
}

func (m *MemStore) UpdateParticipantScore(ctx context.Context, id uuid.UUID, score int) error {
	if p, ok := m.participants[id]; ok {
		p.Score = score
	}
	return nil
}

func (m *MemStore) ResetScores(ctx context.Context, sessionID uuid.UUID) error {
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			p.Score = 0
		}
	}
	return nil
}

func (m *MemStore) CreateCards(ctx context.Context, cs []models.Card) error {
	m.cards = append(m.cards, cs...)
	return nil
}

func (m *MemStore) CreateSubmission(ctx context.Context, s *models.Submission) error {
	cp := *s
	m.submissions = append(m.submissions, &cp)
	return nil
}

func (m *MemStore) UpdateSubmissionVotes(ctx context.Context, id uuid.UUID, votes int) error {
	for _, s := range m.submissions {
		if s.ID == id {
			s.Votes = votes
		}
	}
	return nil
}

func (m *MemStore) CreateVote(ctx context.Context, v *models.Vote) error {
	cp := *v
	m.votes = append(m.votes, &cp)
	return nil
}

func (m *MemStore) UpsertTimer(ctx context.Context, t models.Timer) error {
	m.timers[t.SessionID] = t
	return nil
}

func (m *MemStore) DeactivateTimer(ctx context.Context, sessionID uuid.UUID) error {
	if t, ok := m.timers[sessionID]; ok {
		t.Active = false
		m.timers[sessionID] = t
	}
	return nil
}

func (m *MemStore) InsertEvent(ctx context.Context, e events.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *MemStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RoomCode == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Participant
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	// match the real query's ORDER BY joined_at, id
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *MemStore) ListCardsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Card
	for _, c := range m.cards {
		if c.SessionID == sessionID && c.Round == round {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) ListSubmissionsForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, s := range m.submissions {
		if s.SessionID == sessionID && s.Round == round {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) ListVotesForRound(ctx context.Context, sessionID uuid.UUID, round int) ([]*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Vote
	for _, v := range m.votes {
		if v.SessionID == sessionID && v.Round == round {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) GetTimer(ctx context.Context, sessionID uuid.UUID) (models.Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[sessionID]
	if !ok {
		return models.Timer{}, ErrNotFound
	}
	return t, nil
}

// EventTypes returns every emitted event type in insertion order.
func (m *MemStore) EventTypes() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// Events returns a copy of every emitted event.
func (m *MemStore) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}
