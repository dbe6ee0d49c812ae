// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/campusvote/internal/ctxkeys"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

// WithSession stores the session in the context.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, ctxkeys.Session{}, data)
}

// GetSession returns the session from the context, or nil if there is none.
func GetSession(ctx context.Context) *session.Data {
	if data, ok := ctx.Value(ctxkeys.Session{}).(*session.Data); ok {
		return data
	}
	return nil
}

// GetStudent returns the session when it belongs to a verified student.
func GetStudent(ctx context.Context) *session.Data {
	if data := GetSession(ctx); data.IsStudent() {
		return data
	}
	return nil
}

// GetAdmin returns the session when it belongs to an administrator.
func GetAdmin(ctx context.Context) *session.Data {
	if data := GetSession(ctx); data.IsAdmin() {
		return data
	}
	return nil
}

// IsAuthenticated returns true if the context has any session.
func IsAuthenticated(ctx context.Context) bool {
	return GetSession(ctx) != nil
}
