// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// PasswordReset is a mailed, single-use token that lets an administrator
// set a new password. Only the SHA-256 hash of the token is stored.
type PasswordReset struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id"`
	AdminID   string    `db:"admin_id"`
	TokenHash string    `db:"token_hash"`
	Used      bool      `db:"used"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Redeemable reports whether the token can still be used at now.
func (p *PasswordReset) Redeemable(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
