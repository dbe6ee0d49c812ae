// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

func (r *Repository) CreatePosition(ctx context.Context, p *models.Position) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO positions (id, name, description, created_at) VALUES (?, ?, ?, ?)`),
		p.ID, p.Name, p.Description, p.CreatedAt)
	return wrapError(err)
}

func (r *Repository) GetPosition(ctx context.Context, id string) (*models.Position, error) {
	var p models.Position
	if err := r.db.GetContext(ctx, &p, r.q(`SELECT * FROM positions WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &p, nil
}

func (r *Repository) UpdatePosition(ctx context.Context, p *models.Position) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE positions SET name = ?, description = ? WHERE id = ?`),
		p.Name, p.Description, p.ID)
	return requireAffected(res, err)
}

// DeletePosition deletes a position and cascades to its candidates and votes.
func (r *Repository) DeletePosition(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM positions WHERE id = ?`), id)
	return requireAffected(res, err)
}

func (r *Repository) ListPositions(ctx context.Context) ([]models.Position, error) {
	positions := []models.Position{}
	err := r.db.SelectContext(ctx, &positions, `SELECT * FROM positions ORDER BY name`)
	return positions, err
}

func (r *Repository) CountPositions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM positions`)
	return count, err
}
