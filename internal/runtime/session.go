// Package runtime hosts one goroutine per live session. Every mutation
// funnels through that goroutine, so the phase machine, ledger, roster
// and timer never need their own locks.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/cards"
	"github.com/kyisaiah47/deep-cut-sub000/internal/events"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gametimer"
	"github.com/kyisaiah47/deep-cut-sub000/internal/ledger"
	"github.com/kyisaiah47/deep-cut-sub000/internal/lifecycle"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/phase"
)

var (
	ErrClosed       = errors.New("session runtime closed")
	ErrNotHost      = errors.New("only the host may do this")
	ErrNotAllowed   = errors.New("action not allowed")
	ErrUnknownVoter = errors.New("unknown participant")
)

// Config tunes per-session behavior.
type Config struct {
	TickInterval time.Duration // timer expiry check cadence
	ResultsDelay time.Duration // how long RESULTS shows before the next round

	// Defaults fills unset fields of create requests. Zero means the
	// built-in defaults apply.
	Defaults models.SessionSettings
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 250 * time.Millisecond,
		ResultsDelay: 8 * time.Second,
	}
}

// SessionRuntime is the single writer for one session. Public methods may
// be called from any goroutine; they block until the actor has applied
// the command.
type SessionRuntime struct {
	session *models.Session
	machine *phase.Machine
	rounds  *ledger.Ledger
	timer   *gametimer.Coordinator
	roster  *lifecycle.Manager

	store     Store
	generator cards.Generator
	clock     gameclock.Clock
	cfg       Config

	// round state the ledger does not carry: card text by ID
	roundCards map[uuid.UUID]models.Card
	hands      map[uuid.UUID][]models.Card
	promptText string

	// bumped on every phase change; stale deferred advances check it
	phaseGen int

	cmdCh  chan func()
	closed chan struct{}
}

func NewSessionRuntime(session *models.Session, st Store, gen cards.Generator, clock gameclock.Clock, cfg Config) *SessionRuntime {
	r := &SessionRuntime{
		session:    session,
		machine:    phase.NewMachine(),
		rounds:     ledger.New(session.ID, clock),
		roster:     lifecycle.New(session, clock),
		store:      st,
		generator:  gen,
		clock:      clock,
		cfg:        cfg,
		roundCards: make(map[uuid.UUID]models.Card),
		hands:      make(map[uuid.UUID][]models.Card),
		cmdCh:      make(chan func(), 64),
		closed:     make(chan struct{}),
	}
	r.timer = gametimer.New(clock, r.onTimerExpire)
	return r
}

// Restore rebuilds in-memory state from persisted rows after a restart.
func Restore(ctx context.Context, st Store, session *models.Session, gen cards.Generator, clock gameclock.Clock, cfg Config) (*SessionRuntime, error) {
	r := NewSessionRuntime(session, st, gen, clock, cfg)

	m, err := phase.Restore(session.Phase)
	if err != nil {
		return nil, fmt.Errorf("restore phase machine: %w", err)
	}
	r.machine = m

	participants, err := st.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("restore participants: %w", err)
	}
	r.roster.Restore(participants)

	if session.Phase != models.PhaseLobby {
		roundCards, err := st.ListCardsForRound(ctx, session.ID, session.Round)
		if err != nil {
			return nil, fmt.Errorf("restore cards: %w", err)
		}
		subs, err := st.ListSubmissionsForRound(ctx, session.ID, session.Round)
		if err != nil {
			return nil, fmt.Errorf("restore submissions: %w", err)
		}
		votes, err := st.ListVotesForRound(ctx, session.ID, session.Round)
		if err != nil {
			return nil, fmt.Errorf("restore votes: %w", err)
		}

		var promptID uuid.UUID
		owned := make(map[uuid.UUID][]uuid.UUID)
		for _, c := range roundCards {
			r.roundCards[c.ID] = c
			switch {
			case c.Kind == models.CardKindPrompt:
				promptID = c.ID
				r.promptText = c.Text
			case c.OwnerID != nil:
				owned[*c.OwnerID] = append(owned[*c.OwnerID], c.ID)
				r.hands[*c.OwnerID] = append(r.hands[*c.OwnerID], c)
			}
		}
		r.rounds.RestoreRound(session.Round, promptID, owned, subs, votes)
	}

	if t, err := st.GetTimer(ctx, session.ID); err == nil && t.Active {
		r.timer.Restore(t)
	}

	return r, nil
}

// Run processes commands until ctx is canceled.
func (r *SessionRuntime) Run(ctx context.Context) {
	go r.timer.RunTicker(ctx, r.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			close(r.closed)
			return
		case cmd := <-r.cmdCh:
			cmd()
		}
	}
}

// do runs fn on the actor goroutine and waits for it.
func (r *SessionRuntime) do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	wrapped := func() { done <- fn(ctx) }

	select {
	case r.cmdCh <- wrapped:
	case <-r.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue schedules fn without waiting. Used by timer expiry and deferred
// phase advances.
func (r *SessionRuntime) enqueue(fn func()) {
	select {
	case r.cmdCh <- fn:
	case <-r.closed:
	}
}

// emit builds an envelope and stages it on the transaction.
func (r *SessionRuntime) emit(ctx context.Context, tx Tx, t events.Type, payload any) error {
	e, err := events.New(r.session.ID, t, r.clock.Now(), payload)
	if err != nil {
		return err
	}
	return tx.InsertEvent(ctx, e)
}

// Session returns immutable identity fields. Safe to call anytime; the
// values never change after creation.
func (r *SessionRuntime) Session() (id uuid.UUID, roomCode string) {
	return r.session.ID, r.session.RoomCode
}

// Join adds a participant, or reconnects one rejoining by ID.
func (r *SessionRuntime) Join(ctx context.Context, name string) (*models.Participant, error) {
	var p *models.Participant
	err := r.do(ctx, func(ctx context.Context) error {
		joined, err := r.roster.Join(name)
		if err != nil {
			return err
		}
		err = r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.CreateParticipant(ctx, joined); err != nil {
				return err
			}
			if joined.ID == r.session.HostID {
				if err := tx.UpdateSessionHost(ctx, r.session.ID, joined.ID, r.clock.Now()); err != nil {
					return err
				}
			}
			return r.emit(ctx, tx, events.TypeParticipantJoined, events.ParticipantJoinedPayload{
				ParticipantID: joined.ID,
				Name:          joined.Name,
				IsHost:        joined.ID == r.session.HostID,
				JoinedAt:      joined.JoinedAt,
			})
		})
		if err != nil {
			// nothing was persisted; drop the roster entry again
			r.roster.Remove(joined.ID)
			return err
		}
		p = joined
		return nil
	})
	return p, err
}

// SetConnected flips a participant's presence. A disconnected host may be
// replaced depending on the session's host policy.
func (r *SessionRuntime) SetConnected(ctx context.Context, participantID uuid.UUID, connected bool) error {
	return r.do(ctx, func(ctx context.Context) error {
		p, ok := r.roster.Get(participantID)
		if !ok {
			return lifecycle.ErrNotMember
		}
		if p.Connected == connected {
			return nil
		}
		if err := r.roster.SetConnected(participantID, connected); err != nil {
			return err
		}

		wasHost := participantID == r.session.HostID
		var newHost uuid.UUID
		transferred := false
		if !connected && wasHost {
			newHost, transferred = r.roster.HandleHostDisconnect()
		}

		err := r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.SetParticipantConnected(ctx, participantID, connected); err != nil {
				return err
			}
			if connected {
				if err := r.emit(ctx, tx, events.TypeParticipantJoined, events.ParticipantJoinedPayload{
					ParticipantID: p.ID,
					Name:          p.Name,
					IsHost:        p.ID == r.session.HostID,
					JoinedAt:      p.JoinedAt,
				}); err != nil {
					return err
				}
			} else {
				if err := r.emit(ctx, tx, events.TypeParticipantLeft, events.ParticipantLeftPayload{
					ParticipantID: p.ID,
					Name:          p.Name,
				}); err != nil {
					return err
				}
			}
			if transferred {
				if err := tx.UpdateSessionHost(ctx, r.session.ID, newHost, r.clock.Now()); err != nil {
					return err
				}
				return r.emit(ctx, tx, events.TypeHostChanged, events.HostChangedPayload{
					PreviousHostID: participantID,
					NewHostID:      newHost,
					Automatic:      true,
				})
			}
			return nil
		})
		if err != nil {
			_ = r.roster.SetConnected(participantID, !connected)
			if transferred {
				r.session.HostID = participantID
			}
			return err
		}
		return nil
	})
}

// UpdateSettings lets the host reconfigure the session while in the lobby.
func (r *SessionRuntime) UpdateSettings(ctx context.Context, callerID uuid.UUID, settings models.SessionSettings) error {
	return r.do(ctx, func(ctx context.Context) error {
		cap := r.roster.CanPerform(lifecycle.ActionChangeSettings, callerID, r.roundView(callerID))
		if !cap.Allowed {
			return fmt.Errorf("%w: %s", ErrNotAllowed, cap.Reason)
		}
		prev := r.session.Settings
		r.session.Settings = settings
		err := r.store.Transact(ctx, func(tx Tx) error {
			return tx.UpdateSessionSettings(ctx, r.session.ID, settings, r.clock.Now())
		})
		if err != nil {
			r.session.Settings = prev
		}
		return err
	})
}

// TransferHost hands host privileges to another connected member.
func (r *SessionRuntime) TransferHost(ctx context.Context, callerID, newHostID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		if err := r.roster.TransferHost(callerID, newHostID); err != nil {
			return err
		}
		err := r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.UpdateSessionHost(ctx, r.session.ID, newHostID, r.clock.Now()); err != nil {
				return err
			}
			return r.emit(ctx, tx, events.TypeHostChanged, events.HostChangedPayload{
				PreviousHostID: callerID,
				NewHostID:      newHostID,
				Automatic:      false,
			})
		})
		if err != nil {
			r.session.HostID = callerID
		}
		return err
	})
}

// StartGame begins the first round from the lobby. Scores reset so a
// finished game can be replayed in place.
func (r *SessionRuntime) StartGame(ctx context.Context, callerID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		cap := r.roster.CanPerform(lifecycle.ActionStartGame, callerID, r.roundView(callerID))
		if !cap.Allowed {
			return fmt.Errorf("%w: %s", ErrNotAllowed, cap.Reason)
		}
		if err := r.machine.RequestTransition(models.PhaseLobby, models.PhaseDistribution, r.phaseContext()); err != nil {
			return err
		}
		return r.startRound(ctx, models.PhaseLobby, 1)
	})
}

// startRound generates and deals cards, then opens submission. Must run
// on the actor goroutine with the machine already in DISTRIBUTION. On any
// failure the machine reverts to `from` so live state keeps matching the
// durable row; in-memory round state only changes after the commit.
func (r *SessionRuntime) startRound(ctx context.Context, from models.Phase, round int) error {
	active := r.activeParticipantIDs()
	deal, err := r.generator.Generate(ctx, cards.Request{
		SessionID:        r.session.ID,
		Round:            round,
		ParticipantCount: len(active),
		Theme:            r.session.Settings.Theme,
	})
	if err != nil {
		r.machine.Revert(from)
		return fmt.Errorf("generate round %d: %w", round, err)
	}

	prompt, responses := cards.BuildRound(r.session.ID, round, deal)
	perParticipant := r.session.Settings.CardsPerParticipant
	if perParticipant <= 0 {
		perParticipant = cards.ResponsesPerParticipant
	}
	hands, err := cards.Distribute(responses, active, perParticipant)
	if err != nil {
		r.machine.Revert(from)
		return fmt.Errorf("distribute round %d: %w", round, err)
	}

	owned := make(map[uuid.UUID][]uuid.UUID, len(hands))
	var dealt []models.Card
	dealt = append(dealt, prompt)
	for pid, hand := range hands {
		for _, c := range hand {
			owned[pid] = append(owned[pid], c.ID)
			dealt = append(dealt, c)
		}
	}

	// open submission with its countdown
	if err := r.machine.RequestTransition(models.PhaseDistribution, models.PhaseSubmission, r.phaseContext()); err != nil {
		r.machine.Revert(from)
		return err
	}
	prevTimer := r.timer.State()
	duration := r.session.Settings.SubmissionTimer()
	r.timer.Start(r.session.ID, models.PhaseSubmission, duration)
	timerState := r.timer.State()

	err = r.store.Transact(ctx, func(tx Tx) error {
		if err := tx.CreateCards(ctx, dealt); err != nil {
			return err
		}
		if from == models.PhaseLobby {
			if err := tx.ResetScores(ctx, r.session.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateSessionPhase(ctx, r.session.ID, models.PhaseSubmission, round, r.clock.Now()); err != nil {
			return err
		}
		if err := tx.UpsertTimer(ctx, timerState); err != nil {
			return err
		}
		if err := r.emit(ctx, tx, events.TypeCardsDistributed, events.CardsDistributedPayload{
			Round:        round,
			PromptCardID: prompt.ID,
			PromptText:   prompt.Text,
			HandSize:     perParticipant,
		}); err != nil {
			return err
		}
		started := timerState.StartedAt
		return r.emit(ctx, tx, events.TypePhaseChange, events.PhaseChangePayload{
			From:      string(from),
			To:        string(models.PhaseSubmission),
			Round:     round,
			Duration:  int(duration.Seconds()),
			StartedAt: &started,
		})
	})
	if err != nil {
		r.machine.Revert(from)
		r.timer.Restore(prevTimer)
		return err
	}

	r.phaseGen++
	if from == models.PhaseLobby {
		for _, p := range r.roster.Participants() {
			p.Score = 0
		}
	}
	r.session.Round = round
	r.session.Phase = models.PhaseSubmission
	r.roundCards = make(map[uuid.UUID]models.Card, len(dealt))
	for _, c := range dealt {
		r.roundCards[c.ID] = c
	}
	r.promptText = prompt.Text
	r.hands = hands
	r.rounds.BeginRound(round, prompt.ID, owned)
	log.Info().
		Str("session_id", r.session.ID.String()).
		Int("round", round).
		Msg("round started")
	return nil
}

// Submit records a participant's response cards. When the last active
// participant submits, voting opens early.
func (r *SessionRuntime) Submit(ctx context.Context, callerID uuid.UUID, responseCardIDs []uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		cap := r.roster.CanPerform(lifecycle.ActionSubmit, callerID, r.roundView(callerID))
		if !cap.Allowed {
			return fmt.Errorf("%w: %s", ErrNotAllowed, cap.Reason)
		}
		allIn, sub, err := r.rounds.RecordSubmission(
			r.machine.Current(), callerID, r.rounds.PromptCardID(), responseCardIDs, len(r.activeParticipantIDs()))
		if err != nil {
			return err
		}

		err = r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.CreateSubmission(ctx, sub); err != nil {
				return err
			}
			return r.emit(ctx, tx, events.TypeSubmissionReceived, events.SubmissionReceivedPayload{
				Round:    r.rounds.Round(),
				Received: r.rounds.SubmissionCount(),
				Expected: len(r.activeParticipantIDs()),
			})
		})
		if err != nil {
			// nothing was persisted; free the slot so the retry is not
			// rejected as a duplicate
			r.rounds.RemoveSubmission(callerID)
			return err
		}

		if allIn {
			return r.openVoting(ctx, false)
		}
		return nil
	})
}

// openVoting closes submission and starts the voting countdown. Must run
// on the actor goroutine.
func (r *SessionRuntime) openVoting(ctx context.Context, expired bool) error {
	tctx := r.phaseContext()
	tctx.TimerExpired = expired
	if err := r.machine.RequestTransition(models.PhaseSubmission, models.PhaseVoting, tctx); err != nil {
		return err
	}
	prevTimer := r.timer.State()
	duration := r.session.Settings.VotingTimer()
	r.timer.Start(r.session.ID, models.PhaseVoting, duration)
	timerState := r.timer.State()

	err := r.store.Transact(ctx, func(tx Tx) error {
		if err := tx.UpdateSessionPhase(ctx, r.session.ID, models.PhaseVoting, r.session.Round, r.clock.Now()); err != nil {
			return err
		}
		if err := tx.UpsertTimer(ctx, timerState); err != nil {
			return err
		}
		started := timerState.StartedAt
		return r.emit(ctx, tx, events.TypePhaseChange, events.PhaseChangePayload{
			From:      string(models.PhaseSubmission),
			To:        string(models.PhaseVoting),
			Round:     r.session.Round,
			Duration:  int(duration.Seconds()),
			StartedAt: &started,
		})
	})
	if err != nil {
		// the durable row still says SUBMISSION with its timer active;
		// fall back to it so the next expiry retries the transition
		r.machine.Revert(models.PhaseSubmission)
		prevTimer.Active = true
		r.timer.Restore(prevTimer)
		return err
	}
	r.phaseGen++
	r.session.Phase = models.PhaseVoting
	return nil
}

// Vote records one participant's vote. When every eligible voter has
// voted, the round resolves early.
func (r *SessionRuntime) Vote(ctx context.Context, callerID, submissionID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		cap := r.roster.CanPerform(lifecycle.ActionVote, callerID, r.roundView(callerID))
		if !cap.Allowed {
			return fmt.Errorf("%w: %s", ErrNotAllowed, cap.Reason)
		}
		sub, err := r.rounds.RecordVote(r.machine.Current(), callerID, submissionID)
		if err != nil {
			return err
		}

		err = r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.CreateVote(ctx, &models.Vote{
				SessionID:     r.session.ID,
				Round:         r.rounds.Round(),
				ParticipantID: callerID,
				SubmissionID:  submissionID,
			}); err != nil {
				return err
			}
			return tx.UpdateSubmissionVotes(ctx, sub.ID, sub.Votes)
		})
		if err != nil {
			// nothing was persisted; free the slot so the retry is not
			// rejected as a duplicate
			r.rounds.RemoveVote(callerID)
			return err
		}

		if r.allVotesIn() {
			return r.resolveRound(ctx)
		}
		return nil
	})
}

// allVotesIn reports whether every connected participant with something
// to vote for has voted. Own submissions do not count as options.
func (r *SessionRuntime) allVotesIn() bool {
	subs := r.rounds.Submissions()
	eligible := 0
	for _, p := range r.roster.Participants() {
		if !p.Connected {
			continue
		}
		for _, s := range subs {
			if s.ParticipantID != p.ID {
				eligible++
				break
			}
		}
	}
	return len(r.rounds.Votes()) >= eligible
}

// resolveRound closes voting, scores winners, and either ends the game or
// schedules the next round. Must run on the actor goroutine.
func (r *SessionRuntime) resolveRound(ctx context.Context) error {
	if err := r.machine.RequestTransition(models.PhaseVoting, models.PhaseResults, r.phaseContext()); err != nil {
		return err
	}
	prevTimer := r.timer.State()
	r.timer.Stop()

	result := r.rounds.ResolveRound()
	winnerIDs := make([]uuid.UUID, 0, len(result.Winners))
	for _, w := range result.Winners {
		if p, ok := r.roster.Get(w.ParticipantID); ok {
			p.Score++
			winnerIDs = append(winnerIDs, p.ID)
		}
	}
	progress := ledger.EvaluateProgress(r.roster.Participants(), r.session.Settings.TargetScore)

	err := r.store.Transact(ctx, func(tx Tx) error {
		if err := tx.UpdateSessionPhase(ctx, r.session.ID, models.PhaseResults, r.session.Round, r.clock.Now()); err != nil {
			return err
		}
		if err := tx.DeactivateTimer(ctx, r.session.ID); err != nil {
			return err
		}
		for _, id := range winnerIDs {
			p, _ := r.roster.Get(id)
			if err := tx.UpdateParticipantScore(ctx, id, p.Score); err != nil {
				return err
			}
		}
		if err := r.emit(ctx, tx, events.TypeVotingComplete, events.VotingCompletePayload{
			Round:       r.rounds.Round(),
			VotesCast:   len(r.rounds.Votes()),
			Submissions: r.rounds.SubmissionCount(),
		}); err != nil {
			return err
		}
		if err := r.emit(ctx, tx, events.TypeRoundResolved, events.RoundResolvedPayload{
			Round:     r.rounds.Round(),
			WinnerIDs: winnerIDs,
			MaxVotes:  result.MaxVotes,
			HasTie:    result.HasTie,
		}); err != nil {
			return err
		}
		if err := r.emit(ctx, tx, events.TypePhaseChange, events.PhaseChangePayload{
			From:  string(models.PhaseVoting),
			To:    string(models.PhaseResults),
			Round: r.session.Round,
		}); err != nil {
			return err
		}
		if progress.ShouldEnd {
			gameWinners := make([]uuid.UUID, 0, len(progress.Winners))
			for _, w := range progress.Winners {
				gameWinners = append(gameWinners, w.ID)
			}
			return r.emit(ctx, tx, events.TypeGameEnded, events.GameEndedPayload{
				WinnerIDs: gameWinners,
				TopScore:  progress.TopScore,
				HasTie:    len(gameWinners) > 1,
			})
		}
		return nil
	})
	if err != nil {
		// roll the scores and phase back to match the durable row; the
		// re-armed voting timer retries the resolve on its next expiry
		for _, id := range winnerIDs {
			if p, ok := r.roster.Get(id); ok {
				p.Score--
			}
		}
		r.machine.Revert(models.PhaseVoting)
		prevTimer.Active = true
		r.timer.Restore(prevTimer)
		return err
	}
	r.phaseGen++
	r.session.Phase = models.PhaseResults

	if progress.ShouldEnd {
		return r.returnToLobby(ctx, models.PhaseResults)
	}

	// next round after the results screen has had its moment
	gen := r.phaseGen
	go func() {
		select {
		case <-r.clock.After(r.cfg.ResultsDelay):
		case <-r.closed:
			return
		}
		r.enqueue(func() {
			if r.phaseGen != gen || r.machine.Current() != models.PhaseResults {
				return
			}
			if err := r.machine.RequestTransition(models.PhaseResults, models.PhaseDistribution, r.phaseContext()); err != nil {
				log.Error().Err(err).Str("session_id", r.session.ID.String()).Msg("failed to advance past results")
				return
			}
			if err := r.startRound(context.Background(), models.PhaseResults, r.session.Round+1); err != nil {
				log.Error().Err(err).Str("session_id", r.session.ID.String()).Msg("failed to start next round")
			}
		})
	}()
	return nil
}

// returnToLobby resets round state after a finished game. Scores persist
// for the lobby scoreboard until the next start. Must run on the actor
// goroutine.
func (r *SessionRuntime) returnToLobby(ctx context.Context, from models.Phase) error {
	if err := r.machine.RequestTransition(from, models.PhaseLobby, r.phaseContext()); err != nil {
		return err
	}
	prevTimer := r.timer.State()
	r.timer.Stop()

	err := r.store.Transact(ctx, func(tx Tx) error {
		if err := tx.UpdateSessionPhase(ctx, r.session.ID, models.PhaseLobby, r.session.Round, r.clock.Now()); err != nil {
			return err
		}
		if err := tx.DeactivateTimer(ctx, r.session.ID); err != nil {
			return err
		}
		return r.emit(ctx, tx, events.TypePhaseChange, events.PhaseChangePayload{
			From:  string(from),
			To:    string(models.PhaseLobby),
			Round: r.session.Round,
		})
	})
	if err != nil {
		r.machine.Revert(from)
		r.timer.Restore(prevTimer)
		return err
	}
	r.phaseGen++
	r.roundCards = make(map[uuid.UUID]models.Card)
	r.hands = make(map[uuid.UUID][]models.Card)
	r.promptText = ""
	r.session.Phase = models.PhaseLobby
	return nil
}

// Reset aborts the game and drops round data. Host only.
func (r *SessionRuntime) Reset(ctx context.Context, callerID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		if callerID != r.session.HostID {
			return ErrNotHost
		}
		from := r.machine.Current()
		if from == models.PhaseLobby {
			return nil
		}
		if err := r.machine.RequestTransition(from, models.PhaseLobby, r.phaseContext()); err != nil {
			return err
		}
		prevTimer := r.timer.State()
		r.timer.Stop()

		err := r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.UpdateSessionPhase(ctx, r.session.ID, models.PhaseLobby, 1, r.clock.Now()); err != nil {
				return err
			}
			if err := tx.DeleteRoundData(ctx, r.session.ID); err != nil {
				return err
			}
			if err := tx.ResetScores(ctx, r.session.ID); err != nil {
				return err
			}
			if err := tx.DeactivateTimer(ctx, r.session.ID); err != nil {
				return err
			}
			return r.emit(ctx, tx, events.TypePhaseChange, events.PhaseChangePayload{
				From: string(from),
				To:   string(models.PhaseLobby),
			})
		})
		if err != nil {
			r.machine.Revert(from)
			r.timer.Restore(prevTimer)
			return err
		}
		r.phaseGen++
		r.roundCards = make(map[uuid.UUID]models.Card)
		r.hands = make(map[uuid.UUID][]models.Card)
		r.promptText = ""
		r.session.Round = 1
		for _, p := range r.roster.Participants() {
			p.Score = 0
		}
		r.session.Phase = models.PhaseLobby
		return nil
	})
}

// PauseTimer freezes the current countdown. Host only.
func (r *SessionRuntime) PauseTimer(ctx context.Context, callerID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		if callerID != r.session.HostID {
			return ErrNotHost
		}
		prevTimer := r.timer.State()
		if err := r.timer.Pause(); err != nil {
			return err
		}
		snap := r.timer.Snapshot()
		err := r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.UpsertTimer(ctx, r.timer.State()); err != nil {
				return err
			}
			return r.emit(ctx, tx, events.TypeTimerPaused, events.TimerPausedPayload{
				Phase:        string(snap.Phase),
				RemainingSec: int(snap.Remaining.Seconds()),
			})
		})
		if err != nil {
			r.timer.Restore(prevTimer)
		}
		return err
	})
}

// ResumeTimer unfreezes a paused countdown. Host only.
func (r *SessionRuntime) ResumeTimer(ctx context.Context, callerID uuid.UUID) error {
	return r.do(ctx, func(ctx context.Context) error {
		if callerID != r.session.HostID {
			return ErrNotHost
		}
		prevTimer := r.timer.State()
		if err := r.timer.Resume(); err != nil {
			return err
		}
		snap := r.timer.Snapshot()
		err := r.store.Transact(ctx, func(tx Tx) error {
			if err := tx.UpsertTimer(ctx, r.timer.State()); err != nil {
				return err
			}
			return r.emit(ctx, tx, events.TypeTimerResumed, events.TimerResumedPayload{
				Phase:        string(snap.Phase),
				RemainingSec: int(snap.Remaining.Seconds()),
			})
		})
		if err != nil {
			r.timer.Restore(prevTimer)
		}
		return err
	})
}

// onTimerExpire runs on the ticker goroutine; the real work is enqueued
// onto the actor.
func (r *SessionRuntime) onTimerExpire(p models.Phase) {
	r.enqueue(func() {
		ctx := context.Background()
		var err error
		switch p {
		case models.PhaseSubmission:
			err = r.expireSubmission(ctx)
		case models.PhaseVoting:
			err = r.resolveRound(ctx)
		}
		if err != nil {
			log.Error().Err(err).
				Str("session_id", r.session.ID.String()).
				Str("phase", string(p)).
				Msg("timer expiry handling failed")
		}
	})
}

// expireSubmission auto-submits for everyone who has not, then opens
// voting. Must run on the actor goroutine.
func (r *SessionRuntime) expireSubmission(ctx context.Context) error {
	if r.machine.Current() != models.PhaseSubmission {
		return nil
	}
	active := r.activeParticipantIDs()
	for _, pid := range active {
		if r.rounds.HasSubmitted(pid) {
			continue
		}
		owned := r.rounds.OwnedCards(pid)
		if len(owned) == 0 {
			continue
		}
		n := 1
		if n > len(owned) {
			n = len(owned)
		}
		_, sub, err := r.rounds.RecordSubmission(models.PhaseSubmission, pid, r.rounds.PromptCardID(), owned[:n], len(active))
		if err != nil {
			log.Warn().Err(err).
				Str("participant_id", pid.String()).
				Msg("auto-submit failed")
			continue
		}
		if err := r.store.Transact(ctx, func(tx Tx) error {
			return tx.CreateSubmission(ctx, sub)
		}); err != nil {
			// back the ledger entry out and let the next tick retry
			r.rounds.RemoveSubmission(pid)
			r.timer.Rearm()
			return err
		}
	}

	if r.rounds.SubmissionCount() == 0 {
		// nobody had cards to play; resolve an empty round
		if err := r.openVoting(ctx, true); err != nil {
			return err
		}
		return r.resolveRound(ctx)
	}
	return r.openVoting(ctx, true)
}

func (r *SessionRuntime) phaseContext() phase.Context {
	return phase.Context{
		ActiveParticipants: len(r.activeParticipantIDs()),
		MinParticipants:    r.session.Settings.MinParticipants,
		SubmissionCount:    r.rounds.SubmissionCount(),
	}
}

func (r *SessionRuntime) activeParticipantIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, p := range r.roster.Participants() {
		if p.Connected {
			out = append(out, p.ID)
		}
	}
	return out
}

func (r *SessionRuntime) roundView(participantID uuid.UUID) lifecycle.RoundView {
	return lifecycle.RoundView{
		Phase:        r.machine.Current(),
		HasSubmitted: r.rounds.HasSubmitted(participantID),
		HasVoted:     r.rounds.HasVoted(participantID),
	}
}
