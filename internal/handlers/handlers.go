// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the HTTP API.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers contains the handlers without a domain of their own.
type Handlers struct {
	db Pinger
}

// New creates a new Handlers instance.
func New(db Pinger) *Handlers {
	return &Handlers{db: db}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Validator adapts go-playground/validator to echo.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with required-struct checks enabled.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// decodeJSON reads a JSON body regardless of the declared content type.
// An empty body leaves dst untouched.
func decodeJSON(c echo.Context, dst any) error {
	err := c.Echo().JSONSerializer.Deserialize(c, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}
