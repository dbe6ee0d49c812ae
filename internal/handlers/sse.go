// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
)

// Stream pushes the tally of an event to an admin over Server-Sent Events.
func (h *ResultsHandlers) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	admin := auth.GetAdmin(ctx)
	if admin == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	event, err := h.repo.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(event.ID, admin.SubjectID)
	defer func() {
		sub.Close()
		slog.DebugContext(ctx, "results stream closed", "event_id", event.ID, "open_streams", h.hub.Stats().Streams)
	}()
	slog.DebugContext(ctx, "results stream opened", "event_id", event.ID, "admin", admin.Email, "open_streams", h.hub.Stats().Streams)

	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	if report, err := h.results.Report(ctx, event.ID); err == nil {
		if msg, err := sse.FormatJSONEvent(results.EventName, report); err == nil {
			_, _ = w.Write([]byte(msg))
		}
	} else {
		slog.WarnContext(ctx, "initial results failed", "event_id", event.ID, "error", err)
	}
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil
			}
			w.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
