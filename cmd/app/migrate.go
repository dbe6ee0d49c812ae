// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/database"
)

func migrateCommand() *cli.Command {
	step := func(name, usage string, run func(*sqlx.DB, string) error) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: dbFlags(),
			Action: func(_ context.Context, cmd *cli.Command) error {
				driver := config.NewFromCLI(cmd).Database.Driver
				db, _, err := openRepository(cmd)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()

				if err := run(db, driver); err != nil {
					return fmt.Errorf("migrate %s: %w", name, err)
				}
				fmt.Printf("migrate %s: done\n", name)
				return nil
			},
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			// Opening the database already applies pending migrations.
			step("up", "Apply all pending migrations", func(*sqlx.DB, string) error { return nil }),
			step("down", "Roll back the last migration", func(db *sqlx.DB, driver string) error {
				return database.MigrateDown(db.DB, driver)
			}),
			step("reset", "Roll back all migrations", func(db *sqlx.DB, driver string) error {
				return database.MigrateReset(db.DB, driver)
			}),
		},
	}
}
