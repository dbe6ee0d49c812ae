// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
)

// ResultsHandlers serves tallies, exports, live updates and the audit log.
type ResultsHandlers struct {
	repo      *repository.Repository
	results   *results.Service
	hub       *sse.Hub
	heartbeat time.Duration
	now       func() time.Time
}

// NewResults creates the admin results handlers.
func NewResults(repo *repository.Repository, svc *results.Service, hub *sse.Hub) *ResultsHandlers {
	return &ResultsHandlers{repo: repo, results: svc, hub: hub, heartbeat: 30 * time.Second, now: time.Now}
}

// Results returns the tally of an event.
func (h *ResultsHandlers) Results(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := h.repo.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	report, err := h.results.Report(ctx, event.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ExportCSV downloads the tally of an event as CSV.
func (h *ResultsHandlers) ExportCSV(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := h.repo.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	report, err := h.results.Report(ctx, event.ID)
	if err != nil {
		return err
	}

	now := h.now()
	filename := fmt.Sprintf("%s_results_%s.csv", unsafeFilename.ReplaceAllString(event.Name, "_"), now.Format(time.DateOnly))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return results.WriteCSV(ctx, c.Response(), event, report, now)
}

// Audit lists the audit entries of an event, newest first.
func (h *ResultsHandlers) Audit(c echo.Context) error {
	entries, err := h.repo.ListAudit(c.Request().Context(), c.Param("id"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
