// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues signed session cookies for students and admins.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"codeberg.org/oliverandrich/campusvote/internal/config"
)

// Role tells a student session from an admin session.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Data is the payload carried in the cookie.
type Data struct {
	Role      Role      `json:"role"`
	SubjectID string    `json:"sub"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// IsStudent reports whether the session belongs to a verified student.
func (d *Data) IsStudent() bool { return d != nil && d.Role == RoleStudent }

// IsAdmin reports whether the session belongs to an administrator.
func (d *Data) IsAdmin() bool { return d != nil && d.Role == RoleAdmin }

// Manager encodes and decodes session cookies.
type Manager struct {
	sc     *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
	now    func() time.Time
}

// NewManager builds a Manager from configuration. An empty hash key is
// replaced with a random one, which invalidates sessions on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		hashKey = make([]byte, 32)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, fmt.Errorf("generate session hash key: %w", err)
		}
		slog.Warn("session hash key not configured, generated a random one")
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(cfg.MaxAge)
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{
		sc:     sc,
		name:   cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: secure,
		now:    time.Now,
	}, nil
}

func decodeKey(raw, kind string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", kind, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid session %s key: must be 32 bytes, got %d", kind, len(key))
	}
	return key, nil
}

// WithClock replaces the clock used for issuing and expiring sessions.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create returns a cookie holding a fresh session for the given subject.
func (m *Manager) Create(role Role, subjectID, name, email string) (*http.Cookie, error) {
	if subjectID == "" {
		return nil, errors.New("session subject is required")
	}
	now := m.now().UTC()
	data := Data{
		Role:      role,
		SubjectID: subjectID,
		Name:      name,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Duration(m.maxAge) * time.Second),
	}

	encoded, err := m.sc.Encode(m.name, data)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return m.cookie(encoded, m.maxAge), nil
}

var (
	ErrInvalid = errors.New("invalid session cookie")
	ErrExpired = errors.New("session expired")
)

// Parse returns the session carried by the request, or nil when there is no
// cookie. A cookie that fails verification yields ErrInvalid, one past its
// expiry ErrExpired.
func (m *Manager) Parse(r *http.Request) (*Data, error) {
	c, err := r.Cookie(m.name)
	if err != nil {
		return nil, nil //nolint:nilerr // no cookie means no session
	}

	var data Data
	if err := m.sc.Decode(m.name, c.Value, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !data.ExpiresAt.IsZero() && !m.now().Before(data.ExpiresAt) {
		return nil, ErrExpired
	}
	return &data, nil
}

// Clear returns a cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return m.cookie("", -1)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
