// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// CreateAdmin stores an administrator account.
func (r *Repository) CreateAdmin(ctx context.Context, email, passwordHash string) (*models.Admin, error) {
	admin := &models.Admin{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO admins (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		admin.ID, admin.Email, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return nil, wrapError(err)
	}
	return admin, nil
}

// GetAdminByEmail retrieves an administrator by email address.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.GetContext(ctx, &admin, r.q(`SELECT * FROM admins WHERE email = ?`), NormalizeEmail(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// UpdateAdminPassword replaces the password hash of an administrator.
func (r *Repository) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE admins SET password_hash = ? WHERE id = ?`), passwordHash, id)
	return requireAffected(res, err)
}

// CountAdmins returns the number of administrator accounts.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`)
	return count, err
}
