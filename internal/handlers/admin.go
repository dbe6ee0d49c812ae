// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/auth"
	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	authsvc "codeberg.org/oliverandrich/campusvote/internal/services/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/events"
	"codeberg.org/oliverandrich/campusvote/internal/services/importer"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

// AdminHandlers serves the administration API.
type AdminHandlers struct {
	repo     *repository.Repository
	auth     *authsvc.Service
	sessions *session.Manager
	opts     events.Options
	now      func() time.Time
}

// NewAdmin creates the admin handlers.
func NewAdmin(repo *repository.Repository, authSvc *authsvc.Service, sessions *session.Manager, opts events.Options) *AdminHandlers {
	return &AdminHandlers{repo: repo, auth: authSvc, sessions: sessions, opts: opts, now: time.Now}
}

// audit records an admin action. Failures are logged and do not fail the
// request that triggered them.
func (h *AdminHandlers) audit(c echo.Context, eventID *string, action, details string) {
	ctx := c.Request().Context()
	actor := "system"
	if admin := auth.GetAdmin(ctx); admin != nil {
		actor = admin.Email
	}
	entry := &models.AuditEntry{VotingEventID: eventID, Action: action, Actor: actor, Details: details}
	if err := h.repo.AddAudit(ctx, entry); err != nil {
		slog.WarnContext(ctx, "audit write failed", "action", action, "error", err)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login starts an admin session.
func (h *AdminHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	admin, err := h.auth.Login(ctx, req.Email, req.Password)
	if errors.Is(err, authsvc.ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return err
	}

	cookie, err := h.sessions.Create(session.RoleAdmin, admin.ID, "", admin.Email)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	c.SetRequest(c.Request().WithContext(auth.WithSession(ctx, &session.Data{Role: session.RoleAdmin, SubjectID: admin.ID, Email: admin.Email})))
	h.audit(c, nil, "admin.login", "")

	return c.JSON(http.StatusOK, map[string]any{"success": true, "admin": admin})
}

// Logout ends the admin session.
func (h *AdminHandlers) Logout(c echo.Context) error {
	h.audit(c, nil, "admin.logout", "")
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": i18n.T(c.Request().Context(), "logged_out"),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword mails a reset link. The answer is the same whether or not
// the address belongs to an admin.
func (h *AdminHandlers) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req forgotPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	err := h.auth.RequestPasswordReset(ctx, req.Email)
	if errors.Is(err, authsvc.ErrResetUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "password reset is not available")
	}
	if err != nil {
		return err
	}
	h.audit(c, nil, "admin.password_reset_requested", repository.NormalizeEmail(req.Email))

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": i18n.T(ctx, "password_reset_sent"),
	})
}

type resetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword sets a new password from a mailed reset token.
func (h *AdminHandlers) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req resetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return badRequest("passwords do not match")
	}

	admin, err := h.auth.ResetPassword(ctx, req.Token, req.Password)
	var pwErr *authsvc.PasswordValidationError
	switch {
	case errors.Is(err, authsvc.ErrInvalidResetToken):
		return badRequest("invalid or expired reset token")
	case errors.As(err, &pwErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: pwErr.Error(), Details: pwErr.Messages()})
	case err != nil:
		return err
	}
	h.audit(c, nil, "admin.password_reset", admin.Email)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": i18n.T(ctx, "password_reset_done"),
	})
}

type statsResponse struct {
	Students   int64 `json:"students"`
	Events     int64 `json:"events"`
	Positions  int64 `json:"positions"`
	Candidates int64 `json:"candidates"`
}

// Stats returns the dashboard counters.
func (h *AdminHandlers) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	var stats statsResponse
	for _, f := range []struct {
		dst   *int64
		count func(context.Context) (int64, error)
	}{
		{&stats.Students, h.repo.CountStudents},
		{&stats.Events, h.repo.CountEvents},
		{&stats.Positions, h.repo.CountPositions},
		{&stats.Candidates, h.repo.CountCandidates},
	} {
		n, err := f.count(ctx)
		if err != nil {
			return err
		}
		*f.dst = n
	}
	return c.JSON(http.StatusOK, stats)
}

// Students

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func (h *AdminHandlers) ListStudents(c echo.Context) error {
	filter := repository.StudentFilter{
		Search:   c.QueryParam("q"),
		MatricNo: c.QueryParam("matric_no"),
		FullName: c.QueryParam("full_name"),
		Email:    c.QueryParam("email"),
		Phone:    c.QueryParam("phone"),
		Page:     repository.Page{Page: queryInt(c, "page"), PerPage: queryInt(c, "per_page")},
	}
	students, total, err := h.repo.ListStudents(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[models.Student]{Items: students, Total: total})
}

type studentRequest struct {
	MatricNo string `json:"matric_no" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

func (h *AdminHandlers) CreateStudent(c echo.Context) error {
	var req studentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	s := &models.Student{MatricNo: req.MatricNo, FullName: req.FullName, Email: req.Email, Phone: req.Phone}
	if err := h.repo.CreateStudent(c.Request().Context(), s); err != nil {
		return duplicate(err, "student with this matric_no or email already exists")
	}
	h.audit(c, nil, "student.create", s.MatricNo)
	return c.JSON(http.StatusCreated, s)
}

func (h *AdminHandlers) UpdateStudent(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.repo.GetStudentByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	var req studentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	s.MatricNo, s.FullName, s.Email, s.Phone = req.MatricNo, req.FullName, req.Email, req.Phone
	if err := h.repo.UpdateStudent(ctx, s); err != nil {
		return duplicate(err, "student with this matric_no or email already exists")
	}
	h.audit(c, nil, "student.update", s.MatricNo)
	return c.JSON(http.StatusOK, s)
}

func (h *AdminHandlers) DeleteStudent(c echo.Context) error {
	id := c.Param("id")
	if err := h.repo.DeleteStudent(c.Request().Context(), id); err != nil {
		return err
	}
	h.audit(c, nil, "student.delete", id)
	return c.NoContent(http.StatusNoContent)
}

// ImportStudents loads students from an uploaded CSV file.
func (h *AdminHandlers) ImportStudents(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("a CSV file is required in the 'file' field")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	result, err := importer.Import(ctx, h.repo, f)
	if errors.Is(err, importer.ErrHeader) {
		return badRequest(err.Error())
	}
	if err != nil {
		return err
	}

	h.audit(c, nil, "student.import",
		fmt.Sprintf("imported=%d skipped=%d errors=%d", result.Imported, result.Skipped, len(result.Errors)))
	return c.JSON(http.StatusOK, map[string]any{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
		"message":  i18n.TPlural(ctx, "students_imported", result.Imported),
	})
}

// Positions

type positionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *AdminHandlers) ListPositions(c echo.Context) error {
	positions, err := h.repo.ListPositions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[models.Position]{Items: positions, Total: int64(len(positions))})
}

func (h *AdminHandlers) CreatePosition(c echo.Context) error {
	var req positionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := &models.Position{Name: req.Name, Description: req.Description}
	if err := h.repo.CreatePosition(c.Request().Context(), p); err != nil {
		return duplicate(err, "position with this name already exists")
	}
	h.audit(c, nil, "position.create", p.Name)
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHandlers) UpdatePosition(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.repo.GetPosition(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	var req positionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p.Name, p.Description = req.Name, req.Description
	if err := h.repo.UpdatePosition(ctx, p); err != nil {
		return duplicate(err, "position with this name already exists")
	}
	h.audit(c, nil, "position.update", p.Name)
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandlers) DeletePosition(c echo.Context) error {
	id := c.Param("id")
	if err := h.repo.DeletePosition(c.Request().Context(), id); err != nil {
		return err
	}
	h.audit(c, nil, "position.delete", id)
	return c.NoContent(http.StatusNoContent)
}

// Candidates

type candidateRequest struct {
	PositionID string `json:"position_id" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	Bio        string `json:"bio"`
	PhotoURL   string `json:"photo_url" validate:"omitempty,url"`
}

func (h *AdminHandlers) ListCandidates(c echo.Context) error {
	candidates, err := h.repo.ListCandidates(c.Request().Context(), c.QueryParam("position_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[models.Candidate]{Items: candidates, Total: int64(len(candidates))})
}

func (h *AdminHandlers) CreateCandidate(c echo.Context) error {
	ctx := c.Request().Context()
	var req candidateRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if err := h.requirePosition(ctx, req.PositionID); err != nil {
		return err
	}
	cand := &models.Candidate{PositionID: req.PositionID, FullName: req.FullName, Bio: req.Bio, PhotoURL: req.PhotoURL}
	if err := h.repo.CreateCandidate(ctx, cand); err != nil {
		return err
	}
	h.audit(c, nil, "candidate.create", cand.FullName)
	return c.JSON(http.StatusCreated, cand)
}

func (h *AdminHandlers) UpdateCandidate(c echo.Context) error {
	ctx := c.Request().Context()
	cand, err := h.repo.GetCandidate(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	var req candidateRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if err := h.requirePosition(ctx, req.PositionID); err != nil {
		return err
	}
	cand.PositionID, cand.FullName, cand.Bio, cand.PhotoURL = req.PositionID, req.FullName, req.Bio, req.PhotoURL
	if err := h.repo.UpdateCandidate(ctx, cand); err != nil {
		return err
	}
	h.audit(c, nil, "candidate.update", cand.FullName)
	return c.JSON(http.StatusOK, cand)
}

func (h *AdminHandlers) DeleteCandidate(c echo.Context) error {
	id := c.Param("id")
	if err := h.repo.DeleteCandidate(c.Request().Context(), id); err != nil {
		return err
	}
	h.audit(c, nil, "candidate.delete", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandlers) requirePosition(ctx context.Context, id string) error {
	_, err := h.repo.GetPosition(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return badRequest("unknown position")
	}
	return err
}

// Events

type eventRequest struct {
	Name      string  `json:"name" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	IsActive  bool    `json:"is_active"`
}

type eventListResponse struct {
	Items         []models.VotingEvent `json:"items"`
	Total         int64                `json:"total"`
	ActiveEventID *string              `json:"active_event_id"`
	Rule          events.Rule          `json:"rule"`
	Now           time.Time            `json:"now"`
	Diagnostics   []events.Diagnostic  `json:"diagnostics"`
}

// ListEvents returns all events with the resolver's view of each.
func (h *AdminHandlers) ListEvents(c echo.Context) error {
	list, err := h.repo.ListEvents(c.Request().Context())
	if err != nil {
		return err
	}
	res := events.Resolve(list, h.now(), h.opts)
	resp := eventListResponse{
		Items:       list,
		Total:       int64(len(list)),
		Rule:        res.Rule,
		Now:         res.Now,
		Diagnostics: res.Diagnostics,
	}
	if res.Event != nil {
		resp.ActiveEventID = &res.Event.ID
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandlers) GetEvent(c echo.Context) error {
	e, err := h.repo.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *AdminHandlers) CreateEvent(c echo.Context) error {
	var req eventRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	e := &models.VotingEvent{Name: req.Name, IsActive: req.IsActive}
	if err := applyWindow(e, req); err != nil {
		return err
	}
	if err := h.repo.CreateEvent(c.Request().Context(), e); err != nil {
		return err
	}
	h.audit(c, &e.ID, "event.create", e.Name)
	return c.JSON(http.StatusCreated, e)
}

func (h *AdminHandlers) UpdateEvent(c echo.Context) error {
	ctx := c.Request().Context()
	e, err := h.repo.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	var req eventRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	e.Name, e.IsActive = req.Name, req.IsActive
	if err := applyWindow(e, req); err != nil {
		return err
	}
	if err := h.repo.UpdateEvent(ctx, e); err != nil {
		return err
	}
	h.audit(c, &e.ID, "event.update", fmt.Sprintf("%s active=%t", e.Name, e.IsActive))
	return c.JSON(http.StatusOK, e)
}

func (h *AdminHandlers) DeleteEvent(c echo.Context) error {
	id := c.Param("id")
	if err := h.repo.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	h.audit(c, nil, "event.delete", id)
	return c.NoContent(http.StatusNoContent)
}

// applyWindow stores start and end as RFC 3339 UTC. Empty values clear
// the bound.
func applyWindow(e *models.VotingEvent, req eventRequest) error {
	start, err := normalizeTimestamp(req.StartTime, "start_time")
	if err != nil {
		return err
	}
	end, err := normalizeTimestamp(req.EndTime, "end_time")
	if err != nil {
		return err
	}
	if start.Valid && end.Valid && end.String < start.String {
		return badRequest("end_time must not be before start_time")
	}
	e.StartTime, e.EndTime = start, end
	return nil
}

func normalizeTimestamp(raw *string, field string) (sql.NullString, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return sql.NullString{}, nil
	}
	t, ok := events.ParseTimestamp(*raw)
	if !ok {
		return sql.NullString{}, badRequest("invalid " + field)
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}, nil
}

func (h *AdminHandlers) bind(c echo.Context, dst any) error {
	if err := decodeJSON(c, dst); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(dst)
}

func duplicate(err error, msg string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, msg)
	}
	return err
}
