// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events decides which voting event is open at a given instant.
package events

import (
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// Rule names the step that selected an event.
type Rule int

const (
	RuleNone Rule = iota
	RuleActiveInWindow
	RuleInWindow
	RuleFirstEvent
)

func (r Rule) String() string {
	switch r {
	case RuleActiveInWindow:
		return "active_in_window"
	case RuleInWindow:
		return "in_window"
	case RuleFirstEvent:
		return "first_event"
	default:
		return "none"
	}
}

// MarshalText renders the rule name in JSON payloads.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Diagnostic explains how one event was judged.
type Diagnostic struct { //nolint:govet // fieldalignment: readability over optimization
	EventID  string     `json:"event_id"`
	Name     string     `json:"name"`
	Active   bool       `json:"is_active"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	InWindow bool       `json:"in_window"`
	Reason   string     `json:"reason"`
}

// Resolution is the outcome of Resolve. Event is nil when voting is closed.
type Resolution struct {
	Event       *models.VotingEvent `json:"event"`
	Rule        Rule                `json:"rule"`
	Now         time.Time           `json:"now"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
}

// VotingEnabled reports whether an event was selected.
func (r Resolution) VotingEnabled() bool {
	return r.Event != nil
}

// Options tune Resolve.
type Options struct {
	// StrictWindow disables the fallback to the first event when no event
	// window contains now.
	StrictWindow bool
}

// Resolve selects the voting event for now, in order:
//  1. the first active event whose window contains now
//  2. the first event whose window contains now
//  3. the first event, unless StrictWindow is set
//
// Windows are inclusive at both ends. Events with a missing or unparseable
// start or end never match a window.
func Resolve(list []models.VotingEvent, now time.Time, opts Options) Resolution {
	now = now.UTC()
	res := Resolution{Now: now, Diagnostics: make([]Diagnostic, len(list))}

	firstActive, firstInWindow := -1, -1
	for i := range list {
		d := diagnose(&list[i], now)
		res.Diagnostics[i] = d
		if d.InWindow {
			if firstInWindow < 0 {
				firstInWindow = i
			}
			if d.Active && firstActive < 0 {
				firstActive = i
			}
		}
	}

	switch {
	case firstActive >= 0:
		res.Event, res.Rule = &list[firstActive], RuleActiveInWindow
	case firstInWindow >= 0:
		res.Event, res.Rule = &list[firstInWindow], RuleInWindow
	case len(list) > 0 && !opts.StrictWindow:
		res.Event, res.Rule = &list[0], RuleFirstEvent
	}
	return res
}

// Window returns the parsed bounds of an event.
func Window(e *models.VotingEvent) (start, end time.Time, ok bool) {
	var startOK, endOK bool
	if e.StartTime.Valid {
		start, startOK = ParseTimestamp(e.StartTime.String)
	}
	if e.EndTime.Valid {
		end, endOK = ParseTimestamp(e.EndTime.String)
	}
	return start, end, startOK && endOK
}

func diagnose(e *models.VotingEvent, now time.Time) Diagnostic {
	d := Diagnostic{EventID: e.ID, Name: e.Name, Active: e.IsActive}

	start, end, ok := Window(e)
	if !start.IsZero() {
		d.Start = &start
	}
	if !end.IsZero() {
		d.End = &end
	}

	switch {
	case !ok:
		d.Reason = "missing or invalid start/end"
	case now.Before(start):
		d.Reason = "not started"
	case now.After(end):
		d.Reason = "ended"
	default:
		d.InWindow = true
		if e.IsActive {
			d.Reason = "open"
		} else {
			d.Reason = "in window but not flagged active"
		}
	}
	return d
}
