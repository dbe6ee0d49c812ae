// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// ReplaceOneTimeCode supersedes every unused code for the student and stores
// the new one. Both steps share a transaction, so at most one unused code
// exists per (matric_no, email) afterwards.
func (r *Repository) ReplaceOneTimeCode(ctx context.Context, code *models.OneTimeCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE student_otps SET used = TRUE WHERE matric_no = ? AND email = ? AND used = FALSE`),
		code.MatricNo, code.Email)
	if err != nil {
		return fmt.Errorf("supersede codes: %w", err)
	}

	if code.CreatedAt.IsZero() {
		code.CreatedAt = r.now()
	}
	code.Used = false
	err = tx.GetContext(ctx, &code.ID,
		tx.Rebind(`INSERT INTO student_otps (matric_no, email, otp_code, used, expires_at, created_at)
			VALUES (?, ?, ?, FALSE, ?, ?) RETURNING id`),
		code.MatricNo, code.Email, code.Code, code.ExpiresAt.UTC(), code.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}

	return tx.Commit()
}

// FindRedeemableCode returns the newest unused code matching all three
// inputs that has not expired at now.
func (r *Repository) FindRedeemableCode(ctx context.Context, matricNo, email, code string, now time.Time) (*models.OneTimeCode, error) {
	var codes []models.OneTimeCode
	err := r.db.SelectContext(ctx, &codes,
		r.q(`SELECT * FROM student_otps
			WHERE matric_no = ? AND email = ? AND otp_code = ? AND used = FALSE
			ORDER BY created_at DESC, id DESC`),
		matricNo, email, code)
	if err != nil {
		return nil, err
	}

	for i := range codes {
		if codes[i].Redeemable(now) {
			return &codes[i], nil
		}
	}
	return nil, ErrNotFound
}

// ConsumeOneTimeCode marks a code used. It returns ErrNotFound when the code
// was already used, so only one of two concurrent redemptions succeeds.
func (r *Repository) ConsumeOneTimeCode(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE student_otps SET used = TRUE WHERE id = ? AND used = FALSE`), id)
	return requireAffected(res, err)
}

// RecentOneTimeCodes lists the latest codes issued to a student, newest first.
func (r *Repository) RecentOneTimeCodes(ctx context.Context, matricNo, email string, limit int) ([]models.OneTimeCode, error) {
	codes := []models.OneTimeCode{}
	err := r.db.SelectContext(ctx, &codes,
		r.q(`SELECT * FROM student_otps WHERE matric_no = ? AND email = ? ORDER BY created_at DESC, id DESC LIMIT ?`),
		matricNo, email, limit)
	return codes, err
}
