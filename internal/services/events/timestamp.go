// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// 01/03/2025, 1/3/2025 10:30, 01/03/2025T10:30:15; seconds are ignored
	dayFirstPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\D+(\d{1,2})(?:\D+(\d{1,2})(?:\D+\d{1,2})?)?)?\D*$`)
	// 2025-07-07 23:33:00+00 as rendered by PostgreSQL for timestamptz
	postgresPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}(?:\.\d+)?)([+-]\d{2})$`)
)

// Layouts accepted after the day-first and PostgreSQL forms. Values without
// a zone are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp normalises a stored event timestamp to a UTC instant.
// It reports false for empty or unrecognised input.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		return parseDayFirst(m)
	}

	if m := postgresPattern.FindStringSubmatch(s); m != nil {
		s = m[1] + "T" + m[2] + m[3] + ":00"
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseDayFirst builds a UTC instant from DD/MM/YYYY[ HH[:MM]] parts.
// Calendar overflow such as 31/02 is rejected instead of normalised.
func parseDayFirst(m []string) (time.Time, bool) {
	num := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}

	day, month, year := num(m[1]), num(m[2]), num(m[3])
	hour, minute := num(m[4]), num(m[5])
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
