// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// CreateEvent inserts a voting event, assigning an ID when none is set.
func (r *Repository) CreateEvent(ctx context.Context, e *models.VotingEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO voting_events (id, name, start_time, end_time, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		e.ID, e.Name, e.StartTime, e.EndTime, e.IsActive, e.CreatedAt)
	return wrapError(err)
}

// GetEvent retrieves a voting event by ID.
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.VotingEvent, error) {
	var e models.VotingEvent
	if err := r.db.GetContext(ctx, &e, r.q(`SELECT * FROM voting_events WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &e, nil
}

// UpdateEvent overwrites name, window and active flag of an event.
func (r *Repository) UpdateEvent(ctx context.Context, e *models.VotingEvent) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE voting_events SET name = ?, start_time = ?, end_time = ?, is_active = ? WHERE id = ?`),
		e.Name, e.StartTime, e.EndTime, e.IsActive, e.ID)
	return requireAffected(res, err)
}

// DeleteEvent deletes an event together with its votes.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM voting_events WHERE id = ?`), id)
	return requireAffected(res, err)
}

// ListEvents returns all events in creation order. The order is significant
// to the active event fallback.
func (r *Repository) ListEvents(ctx context.Context) ([]models.VotingEvent, error) {
	events := []models.VotingEvent{}
	err := r.db.SelectContext(ctx, &events, `SELECT * FROM voting_events ORDER BY created_at, id`)
	return events, err
}

// CountEvents returns the number of voting events.
func (r *Repository) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM voting_events`)
	return count, err
}
