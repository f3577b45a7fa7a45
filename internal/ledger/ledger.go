// Package ledger records per-round submissions and votes and resolves
// round outcomes. One-submission-per-participant and one-vote-per-voter
// are first-committer-wins: the runtime serializes calls, so whichever
// request reaches the ledger first holds the slot.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

var (
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrAlreadySubmitted  = errors.New("already submitted this round")
	ErrAlreadyVoted      = errors.New("already voted this round")
	ErrOwnSubmission     = errors.New("cannot vote for own submission")
	ErrCardNotOwned      = errors.New("response card not owned for this round")
	ErrWrongPrompt       = errors.New("prompt card is not this round's prompt")
	ErrUnknownSubmission = errors.New("submission not found")
	ErrNoCards           = errors.New("no cards held for this round")
)

// RoundResult is the outcome of resolving one round. Ties are reported,
// never broken: every submission sharing the max vote count is a winner.
type RoundResult struct {
	Winners  []*models.Submission
	MaxVotes int
	HasTie   bool
}

// Progress is the game-end evaluation after a round is scored. Ties at
// game end are likewise reported, not broken.
type Progress struct {
	ShouldEnd bool
	Winners   []*models.Participant
	TopScore  int
}

// Ledger tracks one session's current round. Not safe for concurrent use;
// the session runtime serializes all mutations.
type Ledger struct {
	sessionID    uuid.UUID
	clock        gameclock.Clock
	round        int
	promptCardID uuid.UUID

	owned         map[uuid.UUID][]uuid.UUID // participant -> response cards dealt this round
	subs          []*models.Submission      // arrival order
	byParticipant map[uuid.UUID]*models.Submission
	votesByVoter  map[uuid.UUID]*models.Vote
}

func New(sessionID uuid.UUID, clock gameclock.Clock) *Ledger {
	return &Ledger{
		sessionID:     sessionID,
		clock:         clock,
		owned:         make(map[uuid.UUID][]uuid.UUID),
		byParticipant: make(map[uuid.UUID]*models.Submission),
		votesByVoter:  make(map[uuid.UUID]*models.Vote),
	}
}

// BeginRound resets per-round state for a freshly distributed round.
func (l *Ledger) BeginRound(round int, promptCardID uuid.UUID, owned map[uuid.UUID][]uuid.UUID) {
	l.round = round
	l.promptCardID = promptCardID
	l.owned = make(map[uuid.UUID][]uuid.UUID, len(owned))
	for pid, cards := range owned {
		l.owned[pid] = append([]uuid.UUID(nil), cards...)
	}
	l.subs = nil
	l.byParticipant = make(map[uuid.UUID]*models.Submission)
	l.votesByVoter = make(map[uuid.UUID]*models.Vote)
}

// RestoreRound rebuilds in-flight round state from persisted records.
func (l *Ledger) RestoreRound(round int, promptCardID uuid.UUID, owned map[uuid.UUID][]uuid.UUID, subs []*models.Submission, votes []*models.Vote) {
	l.BeginRound(round, promptCardID, owned)
	for _, s := range subs {
		l.subs = append(l.subs, s)
		l.byParticipant[s.ParticipantID] = s
	}
	for _, v := range votes {
		l.votesByVoter[v.ParticipantID] = v
	}
}

// Round returns the current round number.
func (l *Ledger) Round() int { return l.round }

// PromptCardID returns this round's designated prompt card.
func (l *Ledger) PromptCardID() uuid.UUID { return l.promptCardID }

// SubmissionCount returns how many submissions the round has received.
func (l *Ledger) SubmissionCount() int { return len(l.subs) }

// HasSubmitted reports whether the participant already submitted this round.
func (l *Ledger) HasSubmitted(participantID uuid.UUID) bool {
	_, ok := l.byParticipant[participantID]
	return ok
}

// HasVoted reports whether the participant already voted this round.
func (l *Ledger) HasVoted(participantID uuid.UUID) bool {
	_, ok := l.votesByVoter[participantID]
	return ok
}

// OwnedCards returns the response cards dealt to a participant this round,
// in deal order. Used by the runtime to auto-submit on timer expiry.
func (l *Ledger) OwnedCards(participantID uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID(nil), l.owned[participantID]...)
}

// Submissions returns the round's submissions in arrival order.
func (l *Ledger) Submissions() []*models.Submission {
	return append([]*models.Submission(nil), l.subs...)
}

// Votes returns the round's votes.
func (l *Ledger) Votes() []*models.Vote {
	out := make([]*models.Vote, 0, len(l.votesByVoter))
	for _, v := range l.votesByVoter {
		out = append(out, v)
	}
	return out
}

// RecordSubmission appends one submission and reports whether every active
// participant has now submitted, which the caller uses to drive the
// submission -> voting transition.
func (l *Ledger) RecordSubmission(current models.Phase, participantID, promptCardID uuid.UUID, responseCardIDs []uuid.UUID, activeParticipants int) (allIn bool, sub *models.Submission, err error) {
	if current != models.PhaseSubmission {
		return false, nil, fmt.Errorf("%w: submissions are closed in %s", ErrWrongPhase, current)
	}
	if l.HasSubmitted(participantID) {
		return false, nil, ErrAlreadySubmitted
	}
	if promptCardID != l.promptCardID {
		return false, nil, ErrWrongPrompt
	}
	dealt := make(map[uuid.UUID]bool, len(l.owned[participantID]))
	for _, id := range l.owned[participantID] {
		dealt[id] = true
	}
	for _, id := range responseCardIDs {
		if !dealt[id] {
			return false, nil, fmt.Errorf("%w: card %s", ErrCardNotOwned, id)
		}
	}

	sub = &models.Submission{
		ID:              uuid.New(),
		SessionID:       l.sessionID,
		Round:           l.round,
		ParticipantID:   participantID,
		PromptCardID:    promptCardID,
		ResponseCardIDs: append([]uuid.UUID(nil), responseCardIDs...),
		SubmittedAt:     l.clock.Now(),
	}
	l.subs = append(l.subs, sub)
	l.byParticipant[participantID] = sub
	return len(l.subs) >= activeParticipants, sub, nil
}

// RemoveSubmission backs out a participant's submission after its write
// failed, freeing the slot so the participant can retry.
func (l *Ledger) RemoveSubmission(participantID uuid.UUID) {
	sub, ok := l.byParticipant[participantID]
	if !ok {
		return
	}
	delete(l.byParticipant, participantID)
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			break
		}
	}
}

// RecordVote increments the chosen submission's vote count.
func (l *Ledger) RecordVote(current models.Phase, voterID, submissionID uuid.UUID) (*models.Submission, error) {
	if current != models.PhaseVoting {
		return nil, fmt.Errorf("%w: voting is closed in %s", ErrWrongPhase, current)
	}
	if l.HasVoted(voterID) {
		return nil, ErrAlreadyVoted
	}
	var target *models.Submission
	for _, s := range l.subs {
		if s.ID == submissionID {
			target = s
			break
		}
	}
	if target == nil {
		return nil, ErrUnknownSubmission
	}
	if target.ParticipantID == voterID {
		return nil, ErrOwnSubmission
	}
	target.Votes++
	l.votesByVoter[voterID] = &models.Vote{
		SessionID:     l.sessionID,
		Round:         l.round,
		ParticipantID: voterID,
		SubmissionID:  submissionID,
	}
	return target, nil
}

// RemoveVote backs out a voter's vote after its write failed, restoring
// the target submission's count and freeing the slot for a retry.
func (l *Ledger) RemoveVote(voterID uuid.UUID) {
	v, ok := l.votesByVoter[voterID]
	if !ok {
		return
	}
	delete(l.votesByVoter, voterID)
	for _, s := range l.subs {
		if s.ID == v.SubmissionID {
			s.Votes--
			break
		}
	}
}

// ResolveRound computes the round's winners. An empty round resolves to
// zero winners with no tie.
func (l *Ledger) ResolveRound() RoundResult {
	if len(l.subs) == 0 {
		return RoundResult{}
	}
	maxVotes := 0
	for _, s := range l.subs {
		if s.Votes > maxVotes {
			maxVotes = s.Votes
		}
	}
	var winners []*models.Submission
	for _, s := range l.subs {
		if s.Votes == maxVotes {
			winners = append(winners, s)
		}
	}
	return RoundResult{
		Winners:  winners,
		MaxVotes: maxVotes,
		HasTie:   len(winners) > 1,
	}
}

// EvaluateProgress checks whether any participant has reached the target
// score. Every participant sharing the top score at or above the target is
// a game winner.
func EvaluateProgress(participants []*models.Participant, targetScore int) Progress {
	top := 0
	for _, p := range participants {
		if p.Score > top {
			top = p.Score
		}
	}
	if top < targetScore {
		return Progress{TopScore: top}
	}
	var winners []*models.Participant
	for _, p := range participants {
		if p.Score == top {
			winners = append(winners, p)
		}
	}
	return Progress{ShouldEnd: true, Winners: winners, TopScore: top}
}
