// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResetRelayPath is the relay endpoint for password reset mails, resolved
// against the configured relay URL.
const ResetRelayPath = "send-password-reset"

// RelayRequest is the body accepted by the mail relay.
type RelayRequest struct {
	To  string `json:"to" validate:"required,email"`
	OTP string `json:"otp" validate:"required"`
}

// RelayResetRequest is the body of a relayed password reset mail.
type RelayResetRequest struct {
	To   string `json:"to" validate:"required,email"`
	Link string `json:"link" validate:"required,url"`
}

// RelayClient hands mails to a mail relay over HTTP.
type RelayClient struct {
	url      string
	resetURL string
	client   *http.Client
}

// NewRelayClient creates a client for the relay OTP endpoint at rawURL.
// Reset mails go to ResetRelayPath next to it.
func NewRelayClient(rawURL string, timeout time.Duration) (*RelayClient, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("mail relay URL is required")
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mail relay URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelayClient{
		url:      rawURL,
		resetURL: base.ResolveReference(&url.URL{Path: ResetRelayPath}).String(),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// SendOTP posts {to, otp} to the relay. Any non-2xx answer is an error.
func (c *RelayClient) SendOTP(ctx context.Context, to, code string) error {
	return c.post(ctx, c.url, RelayRequest{To: to, OTP: code})
}

// SendPasswordReset posts {to, link} to the relay reset endpoint.
func (c *RelayClient) SendPasswordReset(ctx context.Context, to, link string) error {
	return c.post(ctx, c.resetURL, RelayResetRequest{To: to, Link: link})
}

func (c *RelayClient) post(ctx context.Context, target string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: relay responded %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
