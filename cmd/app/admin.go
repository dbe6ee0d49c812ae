// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/campusvote/internal/services/auth"
)

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Manage administrator accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an administrator",
				Flags: dbFlags(
					&cli.StringFlag{Name: "email", Required: true, Usage: "Login email", Sources: cli.EnvVars("ADMIN_EMAIL")},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Login password", Sources: cli.EnvVars("ADMIN_PASSWORD")},
					&cli.BoolFlag{Name: "if-none", Usage: "Only create the account when no administrator exists yet"},
				),
				Action: createAdmin,
			},
			{
				Name:  "password",
				Usage: "Change an administrator password",
				Flags: dbFlags(
					&cli.StringFlag{Name: "email", Required: true, Usage: "Login email"},
					&cli.StringFlag{Name: "current", Required: true, Usage: "Current password"},
					&cli.StringFlag{Name: "new", Required: true, Usage: "New password"},
				),
				Action: changeAdminPassword,
			},
		},
	}
}

func createAdmin(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	svc := auth.NewService(repo)
	email := cmd.String("email")

	if cmd.Bool("if-none") {
		if err := svc.EnsureAdmin(ctx, email, cmd.String("password")); err != nil {
			return passwordProblem(os.Stderr, svc, err)
		}
		fmt.Fprintln(os.Stdout, "Administrator account present")
		return nil
	}

	admin, err := svc.CreateAdmin(ctx, email, cmd.String("password"))
	if err != nil {
		return passwordProblem(os.Stderr, svc, err)
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Created administrator %s\n", admin.Email)
	fmt.Fprintf(os.Stdout, "ID: %s\n", admin.ID)
	return nil
}

func changeAdminPassword(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	svc := auth.NewService(repo)
	if err := svc.ChangePassword(ctx, cmd.String("email"), cmd.String("current"), cmd.String("new")); err != nil {
		return passwordProblem(os.Stderr, svc, err)
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Password changed for %s\n", cmd.String("email"))
	return nil
}

// passwordProblem prints the broken rules and the policy when err is a
// password rejection. Other errors are returned unchanged.
func passwordProblem(w io.Writer, svc *auth.Service, err error) error {
	var pwErr *auth.PasswordValidationError
	if !errors.As(err, &pwErr) {
		return err
	}

	red := color.New(color.FgRed)
	for _, msg := range pwErr.Messages() {
		red.Fprintln(w, msg)
	}
	fmt.Fprintln(w, "Password policy:")
	for _, help := range svc.PasswordValidator().GetHelpTexts() {
		fmt.Fprintf(w, "  - %s\n", help)
	}
	return errors.New("password rejected")
}
