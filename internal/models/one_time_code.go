// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OneTimeCode is a six digit login code mailed to a student.
// Rows are never deleted; a superseded or redeemed code has Used set.
type OneTimeCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	MatricNo  string    `db:"matric_no" json:"matric_no"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"otp_code" json:"-"`
	Used      bool      `db:"used" json:"used"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Redeemable reports whether the code can still be exchanged at now.
// Expiry is inclusive.
func (c *OneTimeCode) Redeemable(now time.Time) bool {
	return !c.Used && !now.After(c.ExpiresAt)
}
