// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// InsertVote stores a vote in a single statement. A second vote for the same
// student, position and event fails with ErrDuplicate.
func (r *Repository) InsertVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO votes (id, student_id, candidate_id, position_id, voting_event_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		v.ID, v.StudentID, v.CandidateID, v.PositionID, v.VotingEventID, v.CreatedAt)
	return wrapError(err)
}

// ListStudentVotes returns the votes a student cast in an event.
func (r *Repository) ListStudentVotes(ctx context.Context, studentID, eventID string) ([]models.Vote, error) {
	votes := []models.Vote{}
	err := r.db.SelectContext(ctx, &votes,
		r.q(`SELECT * FROM votes WHERE student_id = ? AND voting_event_id = ? ORDER BY created_at`),
		studentID, eventID)
	return votes, err
}

// Results tallies every candidate for an event, including candidates
// without votes.
func (r *Repository) Results(ctx context.Context, eventID string) ([]models.ResultRow, error) {
	rows := []models.ResultRow{}
	err := r.db.SelectContext(ctx, &rows, r.q(`
		SELECT p.id AS position_id, p.name AS position_name,
		       c.id AS candidate_id, c.full_name AS candidate_name,
		       COUNT(v.id) AS vote_count
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		LEFT JOIN votes v ON v.candidate_id = c.id AND v.voting_event_id = ?
		GROUP BY p.id, p.name, c.id, c.full_name
		ORDER BY p.name, vote_count DESC, c.full_name`), eventID)
	return rows, err
}

// CountVoters returns the number of distinct students who voted in an event.
func (r *Repository) CountVoters(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		r.q(`SELECT COUNT(DISTINCT student_id) FROM votes WHERE voting_event_id = ?`), eventID)
	return count, err
}
