// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/campusvote/internal/testutil"
)

const strongPassword = "correct-horse-battery"

func newTestService(t *testing.T) *Service {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return NewService(repo)
}

func TestCreateAdminAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "Admin@Uni.edu", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "admin@uni.edu", admin.Email)
	assert.NotEqual(t, strongPassword, admin.PasswordHash)

	got, err := svc.Login(ctx, "admin@uni.edu", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
}

func TestCreateAdmin_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "not-an-email", strongPassword)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.CreateAdmin(ctx, "admin@uni.edu", "short")
	var pve *PasswordValidationError
	require.ErrorAs(t, err, &pve)

	_, err = svc.CreateAdmin(ctx, "admin@uni.edu", strongPassword)
	require.NoError(t, err)
	_, err = svc.CreateAdmin(ctx, "admin@uni.edu", strongPassword)
	require.ErrorIs(t, err, ErrAdminExists)
}

func TestLogin_Failures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "admin@uni.edu", strongPassword)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin@uni.edu", "wrong-password-here")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@uni.edu", strongPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "admin@uni.edu", strongPassword)
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, "admin@uni.edu", "bad", "another-long-secret"), ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, "admin@uni.edu", strongPassword, "another-long-secret"))

	_, err = svc.Login(ctx, "admin@uni.edu", "another-long-secret")
	require.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "first@uni.edu", strongPassword))
	require.NoError(t, svc.EnsureAdmin(ctx, "second@uni.edu", strongPassword))

	_, err := svc.Login(ctx, "second@uni.edu", strongPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials, "second admin is not created once one exists")
}

func TestPasswordValidator(t *testing.T) {
	v := DefaultPasswordValidator()

	tests := []struct {
		name     string
		password string
		attrs    []string
		code     string
	}{
		{"too short", "abc", nil, "min_length"},
		{"numeric", "123456789012345", nil, "entirely_numeric"},
		{"similar to email", "admin@uni.edu1", []string{"admin@uni.edu"}, "too_similar"},
		{"contains email name", "returning-officer-2025", []string{"returning-officer@uni.edu"}, "too_similar"},
		{"longer than bcrypt accepts", strings.Repeat("long-passphrase-", 5), nil, "max_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.password, tt.attrs...)
			require.False(t, res.Valid)
			codes := make([]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				codes = append(codes, e.Code)
			}
			assert.Contains(t, codes, tt.code)
		})
	}

	assert.True(t, v.Validate(strongPassword, "admin@uni.edu").Valid)
	assert.Len(t, v.GetHelpTexts(), 4)
}

type resetOutbox struct {
	to, link string
	err      error
}

func (o *resetOutbox) SendPasswordReset(_ context.Context, to, link string) error {
	o.to, o.link = to, link
	return o.err
}

func (o *resetOutbox) token(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(o.link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newResetService(t *testing.T, now *time.Time) (*Service, *resetOutbox) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	outbox := &resetOutbox{}
	svc := NewService(repo,
		WithPasswordReset(outbox, "https://vote.uni.edu", 30*time.Minute),
		WithClock(func() time.Time { return *now }))
	_, err := svc.CreateAdmin(context.Background(), "admin@uni.edu", strongPassword)
	require.NoError(t, err)
	return svc, outbox
}

func TestPasswordReset(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, outbox := newResetService(t, &now)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "Admin@Uni.edu"))
	assert.Equal(t, "admin@uni.edu", outbox.to)
	assert.True(t, strings.HasPrefix(outbox.link, "https://vote.uni.edu/admin-reset-password?token="))
	token := outbox.token(t)
	assert.Len(t, token, 64)

	var pve *PasswordValidationError
	_, err := svc.ResetPassword(ctx, token, "short")
	require.ErrorAs(t, err, &pve)

	admin, err := svc.ResetPassword(ctx, token, "brand-new-secret-phrase")
	require.NoError(t, err)
	assert.Equal(t, "admin@uni.edu", admin.Email)

	_, err = svc.Login(ctx, "admin@uni.edu", "brand-new-secret-phrase")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "admin@uni.edu", strongPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ResetPassword(ctx, token, "yet-another-secret-phrase")
	require.ErrorIs(t, err, ErrInvalidResetToken, "token is single use")
}

func TestPasswordReset_Expired(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, outbox := newResetService(t, &now)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@uni.edu"))
	now = now.Add(31 * time.Minute)

	_, err := svc.ResetPassword(ctx, outbox.token(t), "brand-new-secret-phrase")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordReset_NewRequestSupersedesOld(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, outbox := newResetService(t, &now)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@uni.edu"))
	first := outbox.token(t)
	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@uni.edu"))
	second := outbox.token(t)
	require.NotEqual(t, first, second)

	_, err := svc.ResetPassword(ctx, first, "brand-new-secret-phrase")
	require.ErrorIs(t, err, ErrInvalidResetToken)
	_, err = svc.ResetPassword(ctx, second, "brand-new-secret-phrase")
	require.NoError(t, err)
}

func TestPasswordReset_Failures(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, outbox := newResetService(t, &now)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@uni.edu"))
	assert.Empty(t, outbox.link, "unknown admins get no mail")

	require.ErrorIs(t, svc.RequestPasswordReset(ctx, "not-an-email"), ErrInvalidEmail)

	_, err := svc.ResetPassword(ctx, "deadbeef", "brand-new-secret-phrase")
	require.ErrorIs(t, err, ErrInvalidResetToken)

	outbox.err = errors.New("smtp down")
	require.Error(t, svc.RequestPasswordReset(ctx, "admin@uni.edu"))

	require.ErrorIs(t, newTestService(t).RequestPasswordReset(ctx, "admin@uni.edu"), ErrResetUnavailable)
}
