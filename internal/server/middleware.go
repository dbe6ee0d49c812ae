// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/middleware"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

// corsHeaders are the request headers browser clients of the API send.
var corsHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

func setupMiddleware(e *echo.Echo, cfg *config.Config, sessions *session.Manager) {
	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger())
	e.Use(echomw.Secure())
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{Skipper: isStream}))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(cors(cfg.Server.CORSOrigins))
	e.Use(middleware.LoadSession(sessions))
	e.Use(middleware.Locale)
}

func setupRelayMiddleware(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger())
	e.Use(echomw.BodyLimit("64K"))
	e.Use(cors(nil))
}

// cors allows any origin unless origins is set.
func cors(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     corsHeaders,
		AllowCredentials: origins[0] != "*",
	})
}

// otpRateLimiter limits OTP requests per client IP. A rate of zero or less
// disables it.
func otpRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return nil
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     max(1, int(perSecond*3)),
		ExpiresIn: 10 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success": false,
				"error":   "Too many requests",
				"details": nil,
			})
		},
	})
}

func isStream(c echo.Context) bool {
	return strings.HasSuffix(c.Request().URL.Path, "/stream")
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			} else {
				slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}

			return nil
		},
	})
}
