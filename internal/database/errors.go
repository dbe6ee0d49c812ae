// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"errors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err was raised by a UNIQUE or PRIMARY KEY
// constraint in either supported database.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	return false
}
