// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package results tallies votes, exports them and streams updates to
// connected admins.
package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/samber/lo"

	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
)

// EventName is the SSE event carrying a fresh report.
const EventName = "results"

// Summary condenses a tally. Turnout is the share of positions that received
// at least one vote, in whole percent. Abstentions counts positions without
// any vote.
type Summary struct {
	TotalVotes  int64 `json:"total_votes"`
	Turnout     int   `json:"turnout"`
	Abstentions int   `json:"abstentions"`
}

// Report is the tally of one event.
type Report struct {
	EventID string             `json:"event_id"`
	Rows    []models.ResultRow `json:"rows"`
	Summary Summary            `json:"summary"`
	Voters  int64              `json:"voters"`
}

// Summarize computes the summary of a tally.
func Summarize(rows []models.ResultRow) Summary {
	if len(rows) == 0 {
		return Summary{}
	}

	positions := lo.Uniq(lo.Map(rows, func(r models.ResultRow, _ int) string {
		return r.PositionID
	}))
	voted := lo.Uniq(lo.FilterMap(rows, func(r models.ResultRow, _ int) (string, bool) {
		return r.PositionID, r.VoteCount > 0
	}))

	return Summary{
		TotalVotes:  lo.SumBy(rows, func(r models.ResultRow) int64 { return r.VoteCount }),
		Turnout:     int(math.Round(float64(len(voted)) / float64(len(positions)) * 100)),
		Abstentions: len(positions) - len(voted),
	}
}

// Store is the persistence the service reads from.
type Store interface {
	Results(ctx context.Context, eventID string) ([]models.ResultRow, error)
	CountVoters(ctx context.Context, eventID string) (int64, error)
}

type Service struct {
	store  Store
	hub    *sse.Hub
	logger *slog.Logger
}

func NewService(store Store, hub *sse.Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, hub: hub, logger: logger}
}

// Report loads the current tally of an event.
func (s *Service) Report(ctx context.Context, eventID string) (*Report, error) {
	rows, err := s.store.Results(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	voters, err := s.store.CountVoters(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("counting voters: %w", err)
	}
	return &Report{EventID: eventID, Rows: rows, Summary: Summarize(rows), Voters: voters}, nil
}

// VoteRecorded pushes a fresh report to everyone watching the event.
// Failures are logged; they never affect the vote itself.
func (s *Service) VoteRecorded(ctx context.Context, eventID string) {
	if s.hub == nil || !s.hub.HasSubscribers(eventID) {
		return
	}

	report, err := s.Report(ctx, eventID)
	if err != nil {
		s.logger.WarnContext(ctx, "results refresh failed", "event_id", eventID, "error", err)
		return
	}
	msg, err := sse.FormatJSONEvent(EventName, report)
	if err != nil {
		s.logger.WarnContext(ctx, "results encoding failed", "event_id", eventID, "error", err)
		return
	}
	delivered := s.hub.Publish(eventID, msg)
	s.logger.DebugContext(ctx, "results published", "event_id", eventID, "streams", delivered)
}

// WriteCSV exports a report with a title line, a header, one line per
// candidate and a trailer.
func WriteCSV(ctx context.Context, w io.Writer, event *models.VotingEvent, report *Report, exportedAt time.Time) error {
	cw := csv.NewWriter(w)

	title := i18n.TData(ctx, "results_csv_title", map[string]any{
		"App":   i18n.T(ctx, "app_name"),
		"Event": event.Name,
		"Date":  exportedAt.Format(time.DateOnly),
	})
	records := [][]string{
		{title},
		{"Position", "Candidate", "Votes"},
	}
	for _, r := range report.Rows {
		records = append(records, []string{r.PositionName, r.CandidateName, strconv.FormatInt(r.VoteCount, 10)})
	}
	records = append(records, []string{i18n.T(ctx, "results_csv_trailer")})

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
