// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/services/email"
)

// RelayHandler turns {to, otp} posts into OTP mails and {to, link} posts
// into password reset mails.
type RelayHandler struct {
	sender email.Sender
}

// NewRelay creates relay handlers that deliver through sender.
func NewRelay(sender email.Sender) *RelayHandler {
	return &RelayHandler{sender: sender}
}

// SendOTP mails the posted code.
func (h *RelayHandler) SendOTP(c echo.Context) error {
	ctx := c.Request().Context()

	var req email.RelayRequest
	if err := decodeJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing to or otp"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing to or otp"})
	}

	if err := h.sender.SendOTP(ctx, req.To, req.OTP); err != nil {
		slog.ErrorContext(ctx, "relay send failed", "to", req.To, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	slog.InfoContext(ctx, "relay mail sent", "to", req.To)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// SendPasswordReset mails the posted reset link.
func (h *RelayHandler) SendPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()

	var req email.RelayResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing to or link"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing to or link"})
	}

	if err := h.sender.SendPasswordReset(ctx, req.To, req.Link); err != nil {
		slog.ErrorContext(ctx, "relay send failed", "to", req.To, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	slog.InfoContext(ctx, "relay reset mail sent", "to", req.To)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
