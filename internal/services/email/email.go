// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers one-time passwords to students and password
// reset links to administrators.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/config"
)

// ErrTransport wraps every delivery failure.
var ErrTransport = errors.New("mail transport failed")

// Sender delivers one-time passwords and admin password reset links.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// NewSender builds the sender selected by cfg.Mail.Mode.
func NewSender(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	switch cfg.Mail.Mode {
	case "smtp":
		return NewService(&cfg.SMTP, cfg.OTP.TTL)
	case "relay", "":
		return NewRelayClient(cfg.Mail.RelayURL, cfg.Mail.Timeout)
	case "log":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail mode %q", cfg.Mail.Mode)
	}
}

// LogSender writes codes to the log instead of mailing them.
// Only meant for local development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, to, code string) error {
	s.logger.InfoContext(ctx, "otp issued", "to", to, "code", code)
	return nil
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, link string) error {
	s.logger.InfoContext(ctx, "password reset issued", "to", to, "link", link)
	return nil
}

func expiryMinutes(ttl time.Duration) int {
	if ttl <= 0 {
		return 10
	}
	return int(ttl.Round(time.Minute) / time.Minute)
}
