// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/services/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/importer"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
)

func init() {
	color.NoColor = true
}

func TestNewApp(t *testing.T) {
	app := newApp()
	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "relay", "students", "admin", "results", "migrate"}, names)
}

func TestPrintImport(t *testing.T) {
	var buf bytes.Buffer
	printImport(&buf, &importer.Result{
		Imported: 2,
		Skipped:  1,
		Errors:   []importer.RowError{{Row: 4, Message: `invalid email "nope"`}},
	})

	out := buf.String()
	assert.Contains(t, out, "Imported 2, skipped 1 existing")
	assert.Contains(t, out, "1 rows rejected")
	assert.Contains(t, out, `invalid email "nope"`)
}

func TestPrintStudents(t *testing.T) {
	var buf bytes.Buffer
	printStudents(&buf, []models.Student{{MatricNo: "CSC/001", FullName: "Ada Obi", Email: "ada@uni.edu"}}, 3)

	assert.Contains(t, buf.String(), "CSC/001")
	assert.Contains(t, buf.String(), "1 of 3 students")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.ResultRow{
		{PositionID: "p1", PositionName: "President", CandidateName: "Alice", VoteCount: 2},
		{PositionID: "p2", PositionName: "Treasurer", CandidateName: "Bob", VoteCount: 0},
	}
	printReport(&buf, &models.VotingEvent{Name: "SUG 2025"}, &results.Report{Rows: rows, Summary: results.Summarize(rows), Voters: 2})

	out := buf.String()
	assert.Contains(t, out, "SUG 2025")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Votes: 2  Voters: 2  Turnout: 50%")
	assert.Contains(t, out, "1 positions without votes")
}

func TestShowResults_RequiresEvent(t *testing.T) {
	err := newApp().Run(context.Background(), []string{"campusvote", "results"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

func TestPasswordProblem(t *testing.T) {
	svc := auth.NewService(nil)

	var buf bytes.Buffer
	err := passwordProblem(&buf, svc, &auth.PasswordValidationError{Errors: []auth.ValidationError{
		{Code: "min_length", Message: "Password must be at least 12 characters long."},
	}})
	require.EqualError(t, err, "password rejected")
	assert.Contains(t, buf.String(), "Password must be at least 12 characters long.")
	assert.Contains(t, buf.String(), "  - At least 12 characters")

	boom := errors.New("boom")
	assert.Same(t, boom, passwordProblem(&buf, svc, boom))
}

func TestAdminCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "vote.db")
	run := func(args ...string) error {
		return newApp().Run(context.Background(), append([]string{"campusvote", "admin"}, args...))
	}

	require.NoError(t, run("create", "--database-dsn", dsn, "--email", "admin@uni.edu", "--password", "correct-horse-battery"))
	require.ErrorContains(t, run("create", "--database-dsn", dsn, "--email", "admin@uni.edu", "--password", "correct-horse-battery"), "already exists")
	require.NoError(t, run("create", "--database-dsn", dsn, "--email", "second@uni.edu", "--password", "short", "--if-none"),
		"bootstrap is skipped once an administrator exists")
	require.EqualError(t, run("create", "--database-dsn", dsn, "--email", "third@uni.edu", "--password", "short"), "password rejected")

	require.ErrorContains(t, run("password", "--database-dsn", dsn, "--email", "admin@uni.edu", "--current", "wrong", "--new", "another-long-secret"), "invalid credentials")
	require.NoError(t, run("password", "--database-dsn", dsn, "--email", "admin@uni.edu", "--current", "correct-horse-battery", "--new", "another-long-secret"))
}
