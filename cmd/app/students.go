// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/services/importer"
)

func studentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "students",
		Usage: "Manage the student register",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import students from a CSV file",
				ArgsUsage: "FILE",
				Flags:     dbFlags(),
				Action:    importStudents,
			},
			{
				Name:  "list",
				Usage: "List registered students",
				Flags: dbFlags(
					&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Filter by matric number, name, email or phone"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum number of students to show"},
				),
				Action: listStudents,
			},
		},
	}
}

func importStudents(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: students import FILE")
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	res, err := importer.Import(ctx, repo, f)
	if err != nil {
		return err
	}
	printImport(os.Stdout, res)
	return nil
}

func printImport(w io.Writer, res *importer.Result) {
	color.New(color.FgGreen).Fprintf(w, "Imported %d, skipped %d existing\n", res.Imported, res.Skipped)
	if len(res.Errors) == 0 {
		return
	}

	color.New(color.FgRed).Fprintf(w, "%d rows rejected\n", len(res.Errors))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Problem"})
	table.SetAutoWrapText(false)
	for _, e := range res.Errors {
		table.Append([]string{strconv.Itoa(e.Row), e.Message})
	}
	table.Render()
}

func listStudents(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	students, total, err := repo.ListStudents(ctx, repository.StudentFilter{
		Search: cmd.String("search"),
		Page:   repository.Page{Page: 1, PerPage: int(cmd.Int("limit"))},
	})
	if err != nil {
		return err
	}
	printStudents(os.Stdout, students, total)
	return nil
}

func printStudents(w io.Writer, students []models.Student, total int64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Matric No", "Name", "Email", "Phone"})
	table.SetAutoWrapText(false)
	for _, s := range students {
		table.Append([]string{s.MatricNo, s.FullName, s.Email, s.Phone})
	}
	table.Render()
	fmt.Fprintf(w, "%d of %d students\n", len(students), total)
}
