// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// ReplacePasswordReset invalidates the admin's outstanding reset tokens and
// stores the new one in the same transaction.
func (r *Repository) ReplacePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE admin_password_resets SET used = TRUE WHERE admin_id = ? AND used = FALSE`),
		reset.AdminID)
	if err != nil {
		return fmt.Errorf("supersede resets: %w", err)
	}

	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = r.now()
	}
	reset.Used = false
	err = tx.GetContext(ctx, &reset.ID,
		tx.Rebind(`INSERT INTO admin_password_resets (admin_id, token_hash, used, expires_at, created_at)
			VALUES (?, ?, FALSE, ?, ?) RETURNING id`),
		reset.AdminID, reset.TokenHash, reset.ExpiresAt.UTC(), reset.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert reset: %w", wrapError(err))
	}

	return tx.Commit()
}

// GetPasswordReset looks a reset up by token hash.
func (r *Repository) GetPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	err := r.db.GetContext(ctx, &reset, r.q(`SELECT * FROM admin_password_resets WHERE token_hash = ?`), tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &reset, nil
}

// ConsumePasswordReset marks a reset used. Like ConsumeOneTimeCode it
// returns ErrNotFound when another request used it first.
func (r *Repository) ConsumePasswordReset(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE admin_password_resets SET used = TRUE WHERE id = ? AND used = FALSE`), id)
	return requireAffected(res, err)
}

// GetAdminByID retrieves an administrator by ID.
func (r *Repository) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, r.q(`SELECT * FROM admins WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}
