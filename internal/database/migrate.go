// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// newProvider builds a goose provider for the migrations of one dialect.
func newProvider(db *sql.DB, driver string) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch driver {
	case "", DriverSQLite:
		dialect, driver = goose.DialectSQLite3, DriverSQLite
	case DriverPostgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	migrations, err := fs.Sub(embedMigrations, "migrations/"+driver)
	if err != nil {
		return nil, err
	}

	return goose.NewProvider(dialect, db, migrations)
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB, driver string) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	_, err = provider.Up(context.Background())
	return err
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, driver string) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	_, err = provider.Down(context.Background())
	return err
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB, driver string) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	_, err = provider.DownTo(context.Background(), 0)
	return err
}
