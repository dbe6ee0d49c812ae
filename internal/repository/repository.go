// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/campusvote/internal/database"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
)

// Repository wraps sqlx for database operations.
// Queries are written with ? placeholders and rebound for the driver in use.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a new Repository instance
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB returns the underlying connection for direct access
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

func (r *Repository) q(query string) string {
	return r.db.Rebind(query)
}

// wrapError converts driver errors to repository errors
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

// requireAffected turns an update or delete that matched nothing into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return wrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Page describes an offset window over a listing. Page is 1-based.
type Page struct {
	Page    int
	PerPage int
}

func (p Page) limitOffset() (int, int) {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > 500 {
		perPage = 500
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
