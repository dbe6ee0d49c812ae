// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// SetupLogger configures the global slog logger. Unknown levels fall back
// to info; any format other than json uses tint.
func SetupLogger(level, format string) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	slog.SetDefault(slog.New(handler).With("service", "campusvote"))
}
