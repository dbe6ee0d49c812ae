// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"sub.domain.localhost", true},
		{"example.com", false},
		{"www.example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false}, // not a real localhost
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "localhost HTTP default port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 80}},
			expected: "http://localhost",
		},
		{
			name:     "localhost HTTP custom port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8080}},
			expected: "http://localhost:8080",
		},
		{
			name: "TLS on default port",
			cfg: &Config{Server: ServerConfig{
				Host: "vote.example.edu", Port: 443,
				TLSCertFile: "cert.pem", TLSKeyFile: "key.pem",
			}},
			expected: "https://vote.example.edu",
		},
		{
			name: "TLS on custom port",
			cfg: &Config{Server: ServerConfig{
				Host: "vote.example.edu", Port: 8443,
				TLSCertFile: "cert.pem", TLSKeyFile: "key.pem",
			}},
			expected: "https://vote.example.edu:8443",
		},
		{
			name:     "cert without key stays on HTTP",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8080, TLSCertFile: "cert.pem"}},
			expected: "http://localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
			Mail:     MailConfig{Mode: "relay", RelayURL: "http://localhost:3001/send-otp"},
			OTP:      OTPConfig{TTL: 10 * time.Minute},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"unknown mail mode", func(c *Config) { c.Mail.Mode = "pigeon" }, "unsupported mail mode"},
		{"relay without url", func(c *Config) { c.Mail.RelayURL = "" }, "relay URL is required"},
		{"zero ttl", func(c *Config) { c.OTP.TTL = 0 }, "otp ttl must be positive"},
		{"cert without key", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }, "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("log mode needs no relay url", func(t *testing.T) {
		cfg := valid()
		cfg.Mail = MailConfig{Mode: "log"}
		assert.NoError(t, cfg.Validate())
	})
}

// parse runs a throwaway command with the server flags and returns the
// resulting configuration.
func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	var cfg *Config
	cmd := &cli.Command{
		Name:  "serve",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg = NewFromCLI(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"serve"}, args...)))
	require.NotNil(t, cfg)
	return cfg
}

func flagNames(flags []cli.Flag) []string {
	var names []string
	for _, f := range flags {
		names = append(names, f.Names()...)
	}
	return names
}

func TestFlags(t *testing.T) {
	names := flagNames(Flags())
	assert.Subset(t, names, []string{
		"host", "port", "base-url", "log-level", "database-driver", "database-dsn",
		"tls-cert-file", "session-cookie-name", "smtp-host", "mail-mode",
		"mail-relay-url", "otp-ttl", "otp-rate-limit", "voting-strict-window",
	})
	assert.NotContains(t, names, "relay-port", "relay flags belong to the relay command")

	assert.Subset(t, flagNames(RelayFlags()), []string{"relay-host", "relay-port", "otp-ttl"})
}

func TestNewFromCLI_Defaults(t *testing.T) {
	cfg := parse(t)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 2, cfg.Server.MaxBodySize)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.UseTLS())
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "_campusvote", cfg.Session.CookieName)
	assert.Equal(t, 28800, cfg.Session.MaxAge)
	assert.Equal(t, "relay", cfg.Mail.Mode)
	assert.Equal(t, "http://localhost:3001/send-otp", cfg.Mail.RelayURL)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.False(t, cfg.OTP.DebugResponses)
	assert.Zero(t, cfg.OTP.RateLimit)
	assert.False(t, cfg.Voting.StrictWindow)
	assert.NoError(t, cfg.Validate())
}

func TestNewFromCLI_Arguments(t *testing.T) {
	cfg := parse(t,
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com",
		"--log-level", "debug",
		"--database-driver", "postgres",
		"--database-dsn", "postgres://localhost/vote",
		"--mail-mode", "LOG",
		"--otp-ttl", "5m",
		"--voting-strict-window",
	)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DatabaseConfig{Driver: "postgres", DSN: "postgres://localhost/vote"}, cfg.Database)
	assert.Equal(t, "log", cfg.Mail.Mode, "mode is normalised")
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.True(t, cfg.Voting.StrictWindow)
}

func TestNewFromCLI_Environment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("OTP_DEBUG_RESPONSES", "true")
	t.Setenv("OTP_RATE_LIMIT", "0.5")

	cfg := parse(t)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "http://localhost:9100", cfg.Server.BaseURL)
	assert.True(t, cfg.OTP.DebugResponses)
	assert.InDelta(t, 0.5, cfg.OTP.RateLimit, 0.0001)

	cfg = parse(t, "--port", "9200")
	assert.Equal(t, 9200, cfg.Server.Port, "flags win over the environment")
}

func TestRelayAddr(t *testing.T) {
	assert.Equal(t, "localhost:3001", RelayConfig{Host: "localhost", Port: 3001}.Addr())
	assert.Equal(t, "0.0.0.0:8080", ServerConfig{Host: "0.0.0.0", Port: 8080}.Addr())
}
