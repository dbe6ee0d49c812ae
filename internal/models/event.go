// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// VotingEvent is an election window. Start and end are kept as the raw
// stored text because older rows use several encodings.
type VotingEvent struct { //nolint:govet // fieldalignment not critical for models
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	StartTime sql.NullString `db:"start_time"`
	EndTime   sql.NullString `db:"end_time"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
}

type votingEventJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime *string   `json:"start_time"`
	EndTime   *string   `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// MarshalJSON renders missing timestamps as null.
func (e VotingEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(votingEventJSON{
		ID:        e.ID,
		Name:      e.Name,
		StartTime: nullable(e.StartTime),
		EndTime:   nullable(e.EndTime),
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	})
}
