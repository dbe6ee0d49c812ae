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
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
)

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:      "results",
		Usage:     "Print the tally of a voting event",
		ArgsUsage: "EVENT_ID",
		Flags: dbFlags(
			&cli.BoolFlag{Name: "csv", Usage: "Write CSV instead of a table"},
		),
		Action: showResults,
	}
}

func showResults(ctx context.Context, cmd *cli.Command) error {
	eventID := cmd.Args().First()
	if eventID == "" {
		return errors.New("usage: results EVENT_ID")
	}

	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	event, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("event %s: %w", eventID, err)
	}
	report, err := results.NewService(repo, nil, nil).Report(ctx, event.ID)
	if err != nil {
		return err
	}

	if cmd.Bool("csv") {
		return results.WriteCSV(ctx, os.Stdout, event, report, time.Now())
	}
	printReport(os.Stdout, event, report)
	return nil
}

func printReport(w io.Writer, event *models.VotingEvent, report *results.Report) {
	color.New(color.Bold).Fprintln(w, event.Name)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Position", "Candidate", "Votes"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(true)
	for _, r := range report.Rows {
		table.Append([]string{r.PositionName, r.CandidateName, strconv.FormatInt(r.VoteCount, 10)})
	}
	table.Render()

	s := report.Summary
	fmt.Fprintf(w, "Votes: %d  Voters: %d  Turnout: %d%%\n", s.TotalVotes, report.Voters, s.Turnout)
	if s.Abstentions > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d positions without votes\n", s.Abstentions)
	}
}
