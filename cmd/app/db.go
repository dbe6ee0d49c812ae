// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/database"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/server"
)

// openRepository opens the configured database for a maintenance command.
// The caller closes the returned database.
func openRepository(cmd *cli.Command) (*sqlx.DB, *repository.Repository, error) {
	cfg := config.NewFromCLI(cmd)
	server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Debug("database opened", "driver", cfg.Database.Driver)
	return db, repository.New(db), nil
}
