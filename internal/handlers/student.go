// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/auth"
	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
	"codeberg.org/oliverandrich/campusvote/internal/services/voting"
)

// StudentHandlers serves the ballot to logged-in students.
type StudentHandlers struct {
	voting   *voting.Service
	sessions *session.Manager
}

// NewStudent creates the student handlers.
func NewStudent(svc *voting.Service, sessions *session.Manager) *StudentHandlers {
	return &StudentHandlers{voting: svc, sessions: sessions}
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Session       *session.Data `json:"session"`
}

// Session reports the current session, if any.
func (h *StudentHandlers) Session(c echo.Context) error {
	data := auth.GetSession(c.Request().Context())
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: data != nil, Session: data})
}

// Logout clears the session cookie.
func (h *StudentHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": i18n.T(c.Request().Context(), "logged_out"),
	})
}

// Ballot returns the active event, its positions and the student's votes.
func (h *StudentHandlers) Ballot(c echo.Context) error {
	ctx := c.Request().Context()
	student := auth.GetStudent(ctx)

	view, err := h.voting.BallotFor(ctx, student.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

type voteRequest struct {
	PositionID  string `json:"position_id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
}

type voteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Vote    *models.Vote `json:"vote,omitempty"`
}

// Vote records the student's choice for one position.
func (h *StudentHandlers) Vote(c echo.Context) error {
	ctx := c.Request().Context()
	student := auth.GetStudent(ctx)

	var req voteRequest
	if err := decodeJSON(c, &req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	vote, err := h.voting.Cast(ctx, student.SubjectID, req.PositionID, req.CandidateID)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "vote recorded",
			"student_id", student.SubjectID,
			"position_id", req.PositionID,
			"event_id", vote.VotingEventID,
		)
		return c.JSON(http.StatusCreated, voteResponse{
			Success: true,
			Message: i18n.T(ctx, "vote_submitted"),
			Vote:    vote,
		})
	case errors.Is(err, voting.ErrAlreadyVoted):
		return c.JSON(http.StatusConflict, voteResponse{Error: i18n.T(ctx, "vote_already_cast")})
	case errors.Is(err, voting.ErrNoActiveEvent):
		return c.JSON(http.StatusConflict, voteResponse{Error: voting.ErrNoActiveEvent.Error()})
	case errors.Is(err, voting.ErrValidation):
		return c.JSON(http.StatusBadRequest, voteResponse{Error: err.Error()})
	}
	return err
}
