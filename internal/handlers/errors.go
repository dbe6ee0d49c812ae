// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/services/voting"
)

// ErrorResponse is the body of every failed API call outside the OTP
// endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler renders errors returned by handlers as JSON. It is
// installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := describe(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("writing error response failed", "error", err)
	}
}

func describe(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorResponse{Error: msg}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: fields}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, ErrorResponse{Error: "already exists"}
	case errors.Is(err, voting.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
