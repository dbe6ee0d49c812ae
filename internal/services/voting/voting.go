// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package voting records ballots for the currently open voting event.
package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/services/events"
)

var (
	// ErrValidation reports a ballot field that is missing or invalid.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyVoted means the student already voted for the position in
	// this event.
	ErrAlreadyVoted = errors.New("already voted for this position")
	// ErrNoActiveEvent means the resolver found no event to vote in.
	ErrNoActiveEvent = errors.New("no active voting event")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")
)

// Notifier is told about every stored vote.
type Notifier interface {
	VoteRecorded(ctx context.Context, eventID string)
}

// Store is the persistence the service needs.
type Store interface {
	InsertVote(ctx context.Context, v *models.Vote) error
	ListEvents(ctx context.Context) ([]models.VotingEvent, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	ListPositions(ctx context.Context) ([]models.Position, error)
	ListCandidates(ctx context.Context, positionID string) ([]models.Candidate, error)
	ListStudentVotes(ctx context.Context, studentID, eventID string) ([]models.Vote, error)
}

// Service records votes against the active event and builds ballots.
type Service struct {
	store    Store
	notifier Notifier
	opts     events.Options
	now      func() time.Time
}

// NewService creates a Service. notifier hears about every stored vote and
// opts controls how the active event is resolved.
func NewService(store Store, notifier Notifier, opts events.Options) *Service {
	return &Service{store: store, notifier: notifier, opts: opts, now: time.Now}
}

// WithClock replaces the wall clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ballot identifies one vote.
type Ballot struct {
	StudentID   string
	CandidateID string
	PositionID  string
	EventID     string
}

// Record stores a vote with a single insert. The unique constraint on
// (student, position, event) is the only guard against double voting, so
// no existing vote is read first. The student ID is stored in canonical
// lower-case hyphenated form whatever UUID spelling the caller used.
func (s *Service) Record(ctx context.Context, b Ballot) (*models.Vote, error) {
	studentID, err := uuid.Parse(strings.TrimSpace(b.StudentID))
	if err != nil {
		return nil, fmt.Errorf("%w: student id must be a UUID", ErrValidation)
	}
	if b.CandidateID == "" || b.PositionID == "" {
		return nil, fmt.Errorf("%w: candidate and position are required", ErrValidation)
	}
	if b.EventID == "" {
		return nil, ErrNoActiveEvent
	}

	vote := &models.Vote{
		StudentID:     studentID.String(),
		CandidateID:   b.CandidateID,
		PositionID:    b.PositionID,
		VotingEventID: b.EventID,
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if s.notifier != nil {
		s.notifier.VoteRecorded(ctx, vote.VotingEventID)
	}
	return vote, nil
}

// ActiveEvent resolves the event that is open right now.
func (s *Service) ActiveEvent(ctx context.Context) (events.Resolution, error) {
	list, err := s.store.ListEvents(ctx)
	if err != nil {
		return events.Resolution{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return events.Resolve(list, s.now(), s.opts), nil
}

// Cast records a student's choice in the active event. The candidate must
// stand for the given position.
func (s *Service) Cast(ctx context.Context, studentID, positionID, candidateID string) (*models.Vote, error) {
	if positionID == "" || candidateID == "" {
		return nil, fmt.Errorf("%w: candidate and position are required", ErrValidation)
	}

	res, err := s.ActiveEvent(ctx)
	if err != nil {
		return nil, err
	}
	if !res.VotingEnabled() {
		return nil, ErrNoActiveEvent
	}

	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown candidate", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if candidate.PositionID != positionID {
		return nil, fmt.Errorf("%w: candidate does not stand for this position", ErrValidation)
	}

	return s.Record(ctx, Ballot{
		StudentID:   studentID,
		CandidateID: candidateID,
		PositionID:  positionID,
		EventID:     res.Event.ID,
	})
}

// PositionBallot is a position with its candidates and the student's pick.
type PositionBallot struct {
	models.Position
	Candidates []models.Candidate `json:"candidates"`
	VotedFor   *string            `json:"voted_for"`
}

// BallotView is everything a student needs to vote.
type BallotView struct {
	Event         *models.VotingEvent `json:"event"`
	VotingEnabled bool                `json:"voting_enabled"`
	Positions     []PositionBallot    `json:"positions"`
}

// BallotFor assembles the ballot of a student for the active event.
func (s *Service) BallotFor(ctx context.Context, studentID string) (*BallotView, error) {
	res, err := s.ActiveEvent(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	candidates, err := s.store.ListCandidates(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var votes []models.Vote
	if res.VotingEnabled() {
		votes, err = s.store.ListStudentVotes(ctx, studentID, res.Event.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}

	byPosition := lo.GroupBy(candidates, func(c models.Candidate) string { return c.PositionID })
	votedFor := lo.SliceToMap(votes, func(v models.Vote) (string, string) { return v.PositionID, v.CandidateID })

	view := &BallotView{Event: res.Event, VotingEnabled: res.VotingEnabled(), Positions: []PositionBallot{}}
	for _, p := range positions {
		pb := PositionBallot{Position: p, Candidates: byPosition[p.ID]}
		if pb.Candidates == nil {
			pb.Candidates = []models.Candidate{}
		}
		if id, ok := votedFor[p.ID]; ok {
			pb.VotedFor = &id
		}
		view.Positions = append(view.Positions, pb)
	}
	return view, nil
}
