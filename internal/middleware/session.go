// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides echo middleware for sessions and locales.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

// LoadSession decodes the session cookie into the request context.
func LoadSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := sessions.Parse(c.Request())
			if err != nil {
				slog.DebugContext(c.Request().Context(), "dropping session cookie", "error", err)
				c.SetCookie(sessions.Clear())
			}
			if data != nil {
				c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), data)))
			}
			return next(c)
		}
	}
}

// RequireStudent rejects requests without a student session.
func RequireStudent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if auth.GetStudent(c.Request().Context()) == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		}
		return next(c)
	}
}

// RequireAdmin rejects requests without an admin session.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		data := auth.GetSession(c.Request().Context())
		if data == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		}
		if !data.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
		return next(c)
	}
}
