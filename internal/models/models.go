// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models holds the database row types shared by the repository,
// services and handlers.
package models

import "time"

// Student is an eligible voter.
type Student struct { //nolint:govet // fieldalignment not critical for models
	ID        string    `db:"id" json:"id"`
	MatricNo  string    `db:"matric_no" json:"matric_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Position is an office being contested.
type Position struct { //nolint:govet // fieldalignment not critical for models
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Candidate stands for exactly one position.
type Candidate struct { //nolint:govet // fieldalignment not critical for models
	ID         string    `db:"id" json:"id"`
	PositionID string    `db:"position_id" json:"position_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Bio        string    `db:"bio" json:"bio"`
	PhotoURL   string    `db:"photo_url" json:"photo_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry records an administrative action.
type AuditEntry struct { //nolint:govet // fieldalignment not critical for models
	ID            int64     `db:"id" json:"id"`
	VotingEventID *string   `db:"voting_event_id" json:"voting_event_id"`
	Action        string    `db:"action" json:"action"`
	Actor         string    `db:"actor" json:"actor"`
	Details       string    `db:"details" json:"details"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
