// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// AddAudit appends an entry to the audit log.
func (r *Repository) AddAudit(ctx context.Context, e *models.AuditEntry) error {
	e.CreatedAt = r.now()
	err := r.db.GetContext(ctx, &e.ID,
		r.q(`INSERT INTO voting_audit (voting_event_id, action, actor, details, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
		e.VotingEventID, e.Action, e.Actor, e.Details, e.CreatedAt)
	return wrapError(err)
}

// ListAudit returns the audit entries of an event, newest first.
func (r *Repository) ListAudit(ctx context.Context, eventID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	entries := []models.AuditEntry{}
	err := r.db.SelectContext(ctx, &entries,
		r.q(`SELECT * FROM voting_audit WHERE voting_event_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`),
		eventID, limit)
	return entries, err
}
