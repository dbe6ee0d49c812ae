// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/services/otp"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

// OTPHandlers serves student login by one-time code.
type OTPHandlers struct {
	otp      *otp.Service
	sessions *session.Manager
	debug    bool
}

// NewOTP creates the OTP handlers. With debug set, failed verifications
// include lookup details in the response.
func NewOTP(svc *otp.Service, sessions *session.Manager, debug bool) *OTPHandlers {
	return &OTPHandlers{otp: svc, sessions: sessions, debug: debug}
}

type sendOTPRequest struct {
	MatricNo string `json:"matric_no"`
}

type sendOTPResponse struct {
	Success    bool    `json:"success"`
	EmailSent  bool    `json:"emailSent"`
	EmailError *string `json:"emailError"`
}

type otpFailure struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Details *string `json:"details"`
}

func otpFail(c echo.Context, status int, msg string, details *string) error {
	return c.JSON(status, otpFailure{Error: msg, Details: details})
}

// Send issues a code for the student with the posted matriculation number.
func (h *OTPHandlers) Send(c echo.Context) error {
	ctx := c.Request().Context()

	var req sendOTPRequest
	if err := decodeJSON(c, &req); err != nil {
		return otpFail(c, http.StatusBadRequest, "Invalid JSON body", errDetail(err))
	}

	result, err := h.otp.Issue(ctx, req.MatricNo)
	switch {
	case errors.Is(err, otp.ErrValidation):
		return otpFail(c, http.StatusBadRequest, "matric_no is required", nil)
	case errors.Is(err, otp.ErrStudentNotFound):
		return otpFail(c, http.StatusNotFound, "Student not found", nil)
	case err != nil:
		slog.ErrorContext(ctx, "otp issue failed", "matric_no", req.MatricNo, "error", err)
		return otpFail(c, http.StatusInternalServerError, "Failed to insert OTP", errDetail(err))
	}

	resp := sendOTPResponse{Success: true, EmailSent: result.EmailSent}
	if !result.EmailSent {
		resp.EmailError = &result.EmailError
	}
	return c.JSON(http.StatusOK, resp)
}

type verifyOTPRequest struct {
	MatricNo string `json:"matric_no"`
	Email    string `json:"email"`
	OTP      string `json:"otp"`
}

type verifyOTPResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Student *models.Student `json:"student"`
}

type verifyOTPFailure struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Debug   *otp.Debug `json:"debug"`
}

// Verify redeems a code and starts a student session.
func (h *OTPHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	var req verifyOTPRequest
	if err := decodeJSON(c, &req); err != nil {
		return otpFail(c, http.StatusBadRequest, "Invalid JSON body", errDetail(err))
	}

	student, err := h.otp.Verify(ctx, otp.VerifyInput{
		MatricNo: req.MatricNo,
		Email:    req.Email,
		Code:     req.OTP,
	})
	if err != nil {
		return h.verifyFailed(c, err)
	}

	cookie, err := h.sessions.Create(session.RoleStudent, student.ID, student.FullName, student.Email)
	if err != nil {
		slog.ErrorContext(ctx, "session create failed", "matric_no", student.MatricNo, "error", err)
		return otpFail(c, http.StatusInternalServerError, "failed to create session", nil)
	}
	c.SetCookie(cookie)

	slog.InfoContext(ctx, "otp verified", "matric_no", student.MatricNo)
	return c.JSON(http.StatusOK, verifyOTPResponse{
		Success: true,
		Message: i18n.T(ctx, "otp_verified"),
		Student: student,
	})
}

func (h *OTPHandlers) verifyFailed(c echo.Context, err error) error {
	var verr *otp.VerifyError
	switch {
	case errors.Is(err, otp.ErrValidation):
		return otpFail(c, http.StatusBadRequest, "Missing matric_no, email, or otp", nil)
	case errors.As(err, &verr):
		body := verifyOTPFailure{Error: "Invalid or expired OTP"}
		if h.debug {
			body.Debug = &verr.Debug
		}
		return c.JSON(http.StatusUnauthorized, body)
	case errors.Is(err, otp.ErrStudentNotFound):
		return c.JSON(http.StatusUnauthorized, verifyOTPFailure{Error: "Invalid or expired OTP"})
	}

	slog.ErrorContext(c.Request().Context(), "otp verify failed", "error", err)
	return otpFail(c, http.StatusInternalServerError, err.Error(), nil)
}

// MethodNotAllowed answers non-POST requests to the OTP endpoints.
func (h *OTPHandlers) MethodNotAllowed(c echo.Context) error {
	return otpFail(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

func errDetail(err error) *string {
	msg := err.Error()
	return &msg
}
