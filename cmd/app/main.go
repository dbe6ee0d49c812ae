// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/server"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "campusvote",
		Usage:   "Online voting for student elections",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),

		// Without a subcommand the API server starts.
		DefaultCommand: "serve",

		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server",
				Flags:  config.Flags(),
				Action: server.Run,
			},
			{
				Name:   "relay",
				Usage:  "Start the mail relay that delivers OTP mails over SMTP",
				Flags:  relayFlags(),
				Action: server.RunRelay,
			},
			studentsCommand(),
			adminCommand(),
			resultsCommand(),
			migrateCommand(),
		},
	}
}

func relayFlags() []cli.Flag {
	flags := config.RelayFlags()
	flags = append(flags, config.SMTPFlags()...)
	flags = append(flags, config.LogFlags()...)
	return flags
}

// dbFlags are the flags of every command working on the database directly.
func dbFlags(extra ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{}, extra...)
	flags = append(flags, config.DatabaseFlags()...)
	flags = append(flags, config.LogFlags()...)
	return flags
}
