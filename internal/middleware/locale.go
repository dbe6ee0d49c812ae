// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/campusvote/internal/i18n"
)

// Locale detects the preferred language from the Accept-Language header
// and stores a localizer in the request context.
func Locale(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		lang := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
		c.SetRequest(c.Request().WithContext(i18n.WithLocale(c.Request().Context(), lang)))
		return next(c)
	}
}
