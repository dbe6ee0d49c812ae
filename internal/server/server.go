// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/database"
	"codeberg.org/oliverandrich/campusvote/internal/handlers"
	"codeberg.org/oliverandrich/campusvote/internal/i18n"
	"codeberg.org/oliverandrich/campusvote/internal/middleware"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	authsvc "codeberg.org/oliverandrich/campusvote/internal/services/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/email"
	"codeberg.org/oliverandrich/campusvote/internal/services/events"
	"codeberg.org/oliverandrich/campusvote/internal/services/otp"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
	"codeberg.org/oliverandrich/campusvote/internal/services/voting"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
)

const shutdownTimeout = 10 * time.Second

// Run starts the API server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"database", cfg.Database.Driver,
		"mail_mode", cfg.Mail.Mode,
	)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	sender, err := email.NewSender(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to set up mail delivery: %w", err)
	}

	e, err := New(cfg, db, sender)
	if err != nil {
		return err
	}
	return serve(ctx, e, cfg.Server)
}

// New builds the API with every service wired to db and sender.
func New(cfg *config.Config, db *sqlx.DB, sender email.Sender) (*echo.Echo, error) {
	repo := repository.New(db)
	hub := sse.NewHub()
	opts := events.Options{StrictWindow: cfg.Voting.StrictWindow}

	sessions, err := session.NewManager(&cfg.Session, cfg.Server.UseTLS() || isHTTPS(cfg.Server.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	resultsSvc := results.NewService(repo, hub, slog.Default())
	votingSvc := voting.NewService(repo, resultsSvc, opts)
	otpSvc := otp.NewService(repo, sender, cfg.OTP.TTL, otp.WithLogger(slog.Default()))
	authSvc := authsvc.NewService(repo, authsvc.WithPasswordReset(sender, cfg.Server.BaseURL, authsvc.DefaultResetTTL))

	e := newEcho()
	setupMiddleware(e, cfg, sessions)

	r := routes{
		health:  handlers.New(db),
		otp:     handlers.NewOTP(otpSvc, sessions, cfg.OTP.DebugResponses),
		student: handlers.NewStudent(votingSvc, sessions),
		admin:   handlers.NewAdmin(repo, authSvc, sessions, opts),
		results: handlers.NewResults(repo, resultsSvc, hub),
	}
	r.register(e, otpRateLimiter(cfg.OTP.RateLimit))
	return e, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler
	return e
}

type routes struct {
	health  *handlers.Handlers
	otp     *handlers.OTPHandlers
	student *handlers.StudentHandlers
	admin   *handlers.AdminHandlers
	results *handlers.ResultsHandlers
}

var otherMethods = []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}

func (r routes) register(e *echo.Echo, limiter echo.MiddlewareFunc) {
	e.GET("/health", r.health.Health)

	api := e.Group("/api")

	otpGroup := api.Group("/otp")
	if limiter != nil {
		otpGroup.Use(limiter)
	}
	otpGroup.POST("/send", r.otp.Send)
	otpGroup.POST("/verify", r.otp.Verify)
	otpGroup.Match(otherMethods, "/send", r.otp.MethodNotAllowed)
	otpGroup.Match(otherMethods, "/verify", r.otp.MethodNotAllowed)

	api.GET("/session", r.student.Session)
	api.POST("/session/logout", r.student.Logout)
	api.GET("/ballot", r.student.Ballot, middleware.RequireStudent)
	api.POST("/votes", r.student.Vote, middleware.RequireStudent)

	api.POST("/admin/login", r.admin.Login)
	api.POST("/admin/logout", r.admin.Logout)

	password := api.Group("/admin/password")
	if limiter != nil {
		password.Use(limiter)
	}
	password.POST("/forgot", r.admin.ForgotPassword)
	password.POST("/reset", r.admin.ResetPassword)

	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.GET("/stats", r.admin.Stats)

	admin.GET("/students", r.admin.ListStudents)
	admin.POST("/students", r.admin.CreateStudent)
	admin.POST("/students/import", r.admin.ImportStudents)
	admin.PUT("/students/:id", r.admin.UpdateStudent)
	admin.DELETE("/students/:id", r.admin.DeleteStudent)

	admin.GET("/positions", r.admin.ListPositions)
	admin.POST("/positions", r.admin.CreatePosition)
	admin.PUT("/positions/:id", r.admin.UpdatePosition)
	admin.DELETE("/positions/:id", r.admin.DeletePosition)

	admin.GET("/candidates", r.admin.ListCandidates)
	admin.POST("/candidates", r.admin.CreateCandidate)
	admin.PUT("/candidates/:id", r.admin.UpdateCandidate)
	admin.DELETE("/candidates/:id", r.admin.DeleteCandidate)

	admin.GET("/events", r.admin.ListEvents)
	admin.POST("/events", r.admin.CreateEvent)
	admin.GET("/events/:id", r.admin.GetEvent)
	admin.PUT("/events/:id", r.admin.UpdateEvent)
	admin.DELETE("/events/:id", r.admin.DeleteEvent)
	admin.GET("/events/:id/results", r.results.Results)
	admin.GET("/events/:id/results.csv", r.results.ExportCSV)
	admin.GET("/events/:id/results/stream", r.results.Stream)
	admin.GET("/events/:id/audit", r.results.Audit)
}

// RunRelay starts the standalone mail relay, which turns POST /send-otp and
// POST /send-password-reset requests into SMTP deliveries.
func RunRelay(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	smtp, err := email.NewService(&cfg.SMTP, cfg.OTP.TTL)
	if err != nil {
		return fmt.Errorf("failed to set up SMTP: %w", err)
	}

	slog.Info("starting mail relay", "addr", cfg.Relay.Addr(), "smtp_host", cfg.SMTP.Host)
	return serve(ctx, NewRelay(smtp), config.ServerConfig{Host: cfg.Relay.Host, Port: cfg.Relay.Port})
}

// NewRelay builds the relay API around sender.
func NewRelay(sender email.Sender) *echo.Echo {
	e := newEcho()
	setupRelayMiddleware(e)
	relay := handlers.NewRelay(sender)
	e.POST("/send-otp", relay.SendOTP)
	e.POST("/"+email.ResetRelayPath, relay.SendPasswordReset)
	return e
}

// serve runs e until ctx is canceled or the process receives SIGINT or
// SIGTERM, then shuts it down gracefully.
func serve(ctx context.Context, e *echo.Echo, cfg config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		var err error
		if cfg.UseTLS() {
			slog.Info("server running", "addr", cfg.Addr(), "tls", true)
			err = e.StartTLS(cfg.Addr(), cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			slog.Info("server running", "addr", cfg.Addr())
			err = e.Start(cfg.Addr())
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}
