// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends mail through an SMTP server.
type Service struct {
	cfg *config.SMTPConfig
	ttl time.Duration
}

// NewService creates a new SMTP email service.
func NewService(cfg *config.SMTPConfig, ttl time.Duration) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg, ttl: ttl}, nil
}

// SendOTP mails a code with a plain-text body and an HTML alternative.
func (s *Service) SendOTP(ctx context.Context, to, code string) error {
	msg, err := s.BuildOTPMessage(ctx, to, code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// BuildOTPMessage renders the localised OTP mail without sending it.
func (s *Service) BuildOTPMessage(ctx context.Context, to, code string) (*mail.Msg, error) {
	data := map[string]any{
		"Code":    code,
		"Minutes": expiryMinutes(s.ttl),
	}

	msg, err := s.newMessage(to)
	if err != nil {
		return nil, err
	}

	msg.Subject(i18n.T(ctx, "otp_email_subject"))
	msg.SetBodyString(mail.TypeTextPlain, i18n.TData(ctx, "otp_email_text", data))
	msg.AddAlternativeString(mail.TypeTextHTML, i18n.TData(ctx, "otp_email_html", data))

	return msg, nil
}

// SendPasswordReset mails an admin the link that sets a new password.
func (s *Service) SendPasswordReset(ctx context.Context, to, link string) error {
	msg, err := s.BuildPasswordResetMessage(ctx, to, link)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// BuildPasswordResetMessage renders the localised reset mail without sending it.
func (s *Service) BuildPasswordResetMessage(ctx context.Context, to, link string) (*mail.Msg, error) {
	data := map[string]any{"Link": link}

	msg, err := s.newMessage(to)
	if err != nil {
		return nil, err
	}

	msg.Subject(i18n.T(ctx, "password_reset_email_subject"))
	msg.SetBodyString(mail.TypeTextPlain, i18n.TData(ctx, "password_reset_email_text", data))
	msg.AddAlternativeString(mail.TypeTextHTML, i18n.TData(ctx, "password_reset_email_html", data))

	return msg, nil
}

// newMessage starts a message from the configured sender to to.
func (s *Service) newMessage(to string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	return msg, nil
}

// send delivers a message via SMTP using go-mail.
func (s *Service) send(ctx context.Context, msg *mail.Msg) error {
	// Build client options
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
