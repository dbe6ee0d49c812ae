// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

func (r *Repository) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO candidates (id, position_id, full_name, bio, photo_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.PositionID, c.FullName, c.Bio, c.PhotoURL, c.CreatedAt)
	return wrapError(err)
}

func (r *Repository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := r.db.GetContext(ctx, &c, r.q(`SELECT * FROM candidates WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

func (r *Repository) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE candidates SET position_id = ?, full_name = ?, bio = ?, photo_url = ? WHERE id = ?`),
		c.PositionID, c.FullName, c.Bio, c.PhotoURL, c.ID)
	return requireAffected(res, err)
}

func (r *Repository) DeleteCandidate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM candidates WHERE id = ?`), id)
	return requireAffected(res, err)
}

// ListCandidates returns candidates ordered by name, optionally limited to
// one position.
func (r *Repository) ListCandidates(ctx context.Context, positionID string) ([]models.Candidate, error) {
	candidates := []models.Candidate{}
	var err error
	if positionID == "" {
		err = r.db.SelectContext(ctx, &candidates, `SELECT * FROM candidates ORDER BY full_name`)
	} else {
		err = r.db.SelectContext(ctx, &candidates,
			r.q(`SELECT * FROM candidates WHERE position_id = ? ORDER BY full_name`), positionID)
	}
	return candidates, err
}

func (r *Repository) CountCandidates(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM candidates`)
	return count, err
}
