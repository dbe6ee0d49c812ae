// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/oliverandrich/campusvote/internal/services/session"
)

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetSession(ctx))
	assert.False(t, IsAuthenticated(ctx))

	student := WithSession(ctx, &session.Data{Role: session.RoleStudent, SubjectID: "s1"})
	assert.True(t, IsAuthenticated(student))
	assert.NotNil(t, GetStudent(student))
	assert.Nil(t, GetAdmin(student))

	admin := WithSession(ctx, &session.Data{Role: session.RoleAdmin, SubjectID: "a1"})
	assert.Nil(t, GetStudent(admin))
	assert.Equal(t, "a1", GetAdmin(admin).SubjectID)
}
