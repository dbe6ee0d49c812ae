// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Vote is one ballot entry. A student holds at most one per position and event.
type Vote struct { //nolint:govet // fieldalignment: readability over optimization
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	CandidateID   string    `db:"candidate_id" json:"candidate_id"`
	PositionID    string    `db:"position_id" json:"position_id"`
	VotingEventID string    `db:"voting_event_id" json:"voting_event_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ResultRow is the tally of one candidate within an event.
type ResultRow struct {
	PositionID    string `db:"position_id" json:"position_id"`
	PositionName  string `db:"position_name" json:"position_name"`
	CandidateID   string `db:"candidate_id" json:"candidate_id"`
	CandidateName string `db:"candidate_name" json:"candidate_name"`
	VoteCount     int64  `db:"vote_count" json:"vote_count"`
}
