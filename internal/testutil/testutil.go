// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/campusvote/internal/database"
	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed when
// the test ends.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, repository.New(db)
}

// NewTestStudent creates a student with a derived name and email.
func NewTestStudent(t *testing.T, repo *repository.Repository, matricNo string) *models.Student {
	t.Helper()
	student := &models.Student{
		MatricNo: matricNo,
		FullName: "Student " + matricNo,
		Email:    fmt.Sprintf("%s@students.example.edu", matricNo),
		Phone:    "0800000000",
	}
	require.NoError(t, repo.CreateStudent(context.Background(), student))
	return student
}

// NewTestPosition creates a position.
func NewTestPosition(t *testing.T, repo *repository.Repository, name string) *models.Position {
	t.Helper()
	position := &models.Position{Name: name}
	require.NoError(t, repo.CreatePosition(context.Background(), position))
	return position
}

// NewTestCandidate creates a candidate for a position.
func NewTestCandidate(t *testing.T, repo *repository.Repository, positionID, name string) *models.Candidate {
	t.Helper()
	candidate := &models.Candidate{PositionID: positionID, FullName: name}
	require.NoError(t, repo.CreateCandidate(context.Background(), candidate))
	return candidate
}

// NewTestEvent creates a voting event. Empty start or end are stored as NULL.
func NewTestEvent(t *testing.T, repo *repository.Repository, name, start, end string, active bool) *models.VotingEvent {
	t.Helper()
	event := &models.VotingEvent{
		Name:      name,
		StartTime: sql.NullString{String: start, Valid: start != ""},
		EndTime:   sql.NullString{String: end, Valid: end != ""},
		IsActive:  active,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), event))
	return event
}

// NewRequest builds a JSON request for handler tests.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// NewEchoContext wraps a JSON request in an Echo context backed by a
// recorder.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return e.NewContext(NewRequest(method, path, body), rec), rec
}
