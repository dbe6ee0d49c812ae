// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResets(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	admin, err := repo.CreateAdmin(ctx, "admin@uni.edu", "hash")
	require.NoError(t, err)

	got, err := repo.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@uni.edu", got.Email)

	expires := time.Now().UTC().Add(time.Hour)
	first := &models.PasswordReset{AdminID: admin.ID, TokenHash: "hash-1", ExpiresAt: expires}
	require.NoError(t, repo.ReplacePasswordReset(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.PasswordReset{AdminID: admin.ID, TokenHash: "hash-2", ExpiresAt: expires}
	require.NoError(t, repo.ReplacePasswordReset(ctx, second))

	old, err := repo.GetPasswordReset(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, old.Used, "a new reset supersedes the old one")

	current, err := repo.GetPasswordReset(ctx, "hash-2")
	require.NoError(t, err)
	assert.True(t, current.Redeemable(time.Now()))
	assert.WithinDuration(t, expires, current.ExpiresAt, time.Second)

	require.NoError(t, repo.ConsumePasswordReset(ctx, current.ID))
	require.ErrorIs(t, repo.ConsumePasswordReset(ctx, current.ID), repository.ErrNotFound)

	_, err = repo.GetPasswordReset(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetAdminByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPasswordReset_Redeemable(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	reset := models.PasswordReset{ExpiresAt: now.Add(time.Minute)}

	assert.True(t, reset.Redeemable(now))
	assert.False(t, reset.Redeemable(now.Add(time.Minute)), "expiry is exclusive")
	reset.Used = true
	assert.False(t, reset.Redeemable(now))
}
