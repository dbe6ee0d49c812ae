// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
	SMTP     SMTPConfig
	Mail     MailConfig
	OTP      OTPConfig
	Voting   VotingConfig
	Relay    RelayConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int      // in MB
	CORSOrigins []string // empty allows any origin
	TLSCertFile string   // optional, enables HTTPS together with TLSKeyFile
	TLSKeyFile  string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	Driver string // sqlite, postgres
	DSN    string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type MailConfig struct {
	Mode     string // smtp, relay, log
	RelayURL string
	Timeout  time.Duration
}

type OTPConfig struct {
	TTL            time.Duration
	DebugResponses bool
	RateLimit      float64 // requests per second per IP, 0 disables
}

type VotingConfig struct {
	StrictWindow bool // never fall back to an event outside its window
}

type RelayConfig struct {
	Host string
	Port int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			CORSOrigins: cmd.StringSlice("cors-origins"),
			TLSCertFile: cmd.String("tls-cert-file"),
			TLSKeyFile:  cmd.String("tls-key-file"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			Driver: cmd.String("database-driver"),
			DSN:    cmd.String("database-dsn"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Mail: MailConfig{
			Mode:     strings.ToLower(cmd.String("mail-mode")),
			RelayURL: cmd.String("mail-relay-url"),
			Timeout:  cmd.Duration("mail-timeout"),
		},
		OTP: OTPConfig{
			TTL:            cmd.Duration("otp-ttl"),
			DebugResponses: cmd.Bool("otp-debug-responses"),
			RateLimit:      cmd.Float("otp-rate-limit"),
		},
		Voting: VotingConfig{
			StrictWindow: cmd.Bool("voting-strict-window"),
		},
		Relay: RelayConfig{
			Host: cmd.String("relay-host"),
			Port: int(cmd.Int("relay-port")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// UseTLS reports whether the server was given a certificate pair.
func (c ServerConfig) UseTLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Addr returns the listen address of the API server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address of the mail relay.
func (c RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func buildBaseURL(cfg *Config) string {
	scheme := "http"
	if cfg.Server.UseTLS() {
		scheme = "https"
	}

	host := cfg.Server.Host
	port := cfg.Server.Port

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

// DatabaseFlags are shared by every command that touches the database.
func DatabaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-driver",
			Value:   "sqlite",
			Usage:   "Database driver (sqlite, postgres)",
			Sources: source("DATABASE_DRIVER", "database.driver"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/campusvote.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
	}
}

// LogFlags configure the slog handler.
func LogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
	}
}

// SMTPFlags configure outgoing mail.
func SMTPFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Campus Vote",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS (implicit on port 465, STARTTLS otherwise)",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
	}
}

// RelayFlags configure the standalone mail relay.
func RelayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "relay-host",
			Value:   "localhost",
			Usage:   "Host the mail relay binds to",
			Sources: source("RELAY_HOST", "relay.host"),
		},
		&cli.IntFlag{
			Name:    "relay-port",
			Value:   3001,
			Usage:   "Port the mail relay listens on",
			Sources: source("RELAY_PORT", "relay.port"),
		},
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime stated in the mailed one-time password",
			Sources: source("OTP_TTL", "otp.ttl"),
		},
	}
}

// Flags returns every flag understood by the API server.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   2,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Usage:   "Allowed CORS origins (empty allows any)",
			Sources: source("CORS_ORIGINS", "server.cors_origins"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file",
			Sources: source("TLS_CERT_FILE", "server.tls_cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file",
			Sources: source("TLS_KEY_FILE", "server.tls_key_file"),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_campusvote",
			Usage:   "Session cookie name",
			Sources: source("SESSION_COOKIE_NAME", "session.cookie_name"),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   28800, // 8 hours in seconds
			Usage:   "Session max age in seconds",
			Sources: source("SESSION_MAX_AGE", "session.max_age"),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("SESSION_HASH_KEY", "session.hash_key"),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: source("SESSION_BLOCK_KEY", "session.block_key"),
		},
		// Mail delivery
		&cli.StringFlag{
			Name:    "mail-mode",
			Value:   "relay",
			Usage:   "How OTP mails are delivered (smtp, relay, log)",
			Sources: source("MAIL_MODE", "mail.mode"),
		},
		&cli.StringFlag{
			Name:    "mail-relay-url",
			Value:   "http://localhost:3001/send-otp",
			Usage:   "Endpoint of the mail relay",
			Sources: source("SMTP_BACKEND_URL", "mail.relay_url"),
		},
		&cli.DurationFlag{
			Name:    "mail-timeout",
			Value:   10 * time.Second,
			Usage:   "Timeout for a single mail delivery",
			Sources: source("MAIL_TIMEOUT", "mail.timeout"),
		},
		// OTP
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of a one-time password",
			Sources: source("OTP_TTL", "otp.ttl"),
		},
		&cli.BoolFlag{
			Name:    "otp-debug-responses",
			Usage:   "Include lookup details in failed verification responses",
			Sources: source("OTP_DEBUG_RESPONSES", "otp.debug_responses"),
		},
		&cli.FloatFlag{
			Name:    "otp-rate-limit",
			Usage:   "Requests per second per client IP on OTP endpoints (0 disables)",
			Sources: source("OTP_RATE_LIMIT", "otp.rate_limit"),
		},
		// Voting
		&cli.BoolFlag{
			Name:    "voting-strict-window",
			Usage:   "Only open voting inside an event's configured window",
			Sources: source("VOTING_STRICT_WINDOW", "voting.strict_window"),
		},
	}

	flags = append(flags, LogFlags()...)
	flags = append(flags, DatabaseFlags()...)
	flags = append(flags, SMTPFlags()...)
	return flags
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Mail.Mode {
	case "smtp", "relay", "log":
	default:
		return fmt.Errorf("unsupported mail mode %q", c.Mail.Mode)
	}
	if c.Mail.Mode == "relay" && c.Mail.RelayURL == "" {
		return fmt.Errorf("mail relay URL is required in relay mode")
	}

	if c.OTP.TTL <= 0 {
		return fmt.Errorf("otp ttl must be positive, got %s", c.OTP.TTL)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls-cert-file and tls-key-file must be set together")
	}
	return nil
}
