// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth authenticates administrators.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
)

var (
	ErrAdminExists        = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	// ErrInvalidResetToken covers unknown, expired and already used tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrResetUnavailable is returned when no mail sender was configured.
	ErrResetUnavailable = errors.New("password reset is not configured")
)

// DefaultResetTTL is how long a mailed reset link stays valid.
const DefaultResetTTL = time.Hour

// ResetPath is the frontend page that accepts the reset token.
const ResetPath = "/admin-reset-password"

// dummyHash is compared against when the account does not exist so that
// both failure paths take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

var validate = validator.New()

// Store is the admin persistence the service needs.
type Store interface {
	CreateAdmin(ctx context.Context, email, passwordHash string) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
	CountAdmins(ctx context.Context) (int64, error)
	GetAdminByID(ctx context.Context, id string) (*models.Admin, error)
	ReplacePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	GetPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, id int64) error
}

// ResetSender mails password reset links.
type ResetSender interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Service authenticates administrators and manages their passwords.
type Service struct {
	store             Store
	passwordValidator *PasswordValidator
	sender            ResetSender
	baseURL           string
	resetTTL          time.Duration
	now               func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPasswordReset enables mailed reset links pointing at baseURL.
func WithPasswordReset(sender ResetSender, baseURL string, ttl time.Duration) Option {
	return func(s *Service) {
		s.sender = sender
		s.baseURL = baseURL
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithClock replaces the wall clock used for reset expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Password reset stays disabled unless
// WithPasswordReset is given.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		passwordValidator: DefaultPasswordValidator(),
		resetTTL:          DefaultResetTTL,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PasswordValidator returns the policy used for new passwords.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// CreateAdmin hashes the password and stores a new administrator.
func (s *Service) CreateAdmin(ctx context.Context, email, password string) (*models.Admin, error) {
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	hash, err := s.hashPassword(password, email)
	if err != nil {
		return nil, err
	}

	admin, err := s.store.CreateAdmin(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.InfoContext(ctx, "admin_created", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}

// Login checks an email and password pair.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Admin, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.WarnContext(ctx, "login_failed", "email", email, "reason", "admin_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "login_success", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}

// ChangePassword replaces an admin password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	admin, err := s.Login(ctx, email, currentPassword)
	if err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword, admin.Email)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAdminPassword(ctx, admin.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	slog.InfoContext(ctx, "admin_password_changed", "admin_id", admin.ID)
	return nil
}

// hashPassword applies the password policy and returns the bcrypt hash.
func (s *Service) hashPassword(password, email string) (string, error) {
	if validation := s.passwordValidator.Validate(password, email); !validation.Valid {
		return "", &PasswordValidationError{Errors: validation.Errors}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureAdmin creates the given admin when no administrator exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := s.CreateAdmin(ctx, email, password); err != nil && !errors.Is(err, ErrAdminExists) {
		return err
	}
	return nil
}

// RequestPasswordReset mails a single-use reset link to the admin with the
// given email. Unknown addresses succeed silently and reveal nothing about
// which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.sender == nil {
		return ErrResetUnavailable
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		slog.WarnContext(ctx, "password_reset_unknown_admin", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get admin: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	reset := &models.PasswordReset{
		AdminID:   admin.ID,
		TokenHash: hashResetToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.store.ReplacePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.sender.SendPasswordReset(ctx, admin.Email, s.resetLink(token)); err != nil {
		return fmt.Errorf("failed to send reset link: %w", err)
	}
	slog.InfoContext(ctx, "password_reset_requested", "admin_id", admin.ID)
	return nil
}

// ResetPassword sets a new password for the admin that owns token and
// consumes the token. A password that breaks the policy leaves the token
// usable.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*models.Admin, error) {
	reset, err := s.store.GetPasswordReset(ctx, hashResetToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	if !reset.Redeemable(s.now()) {
		return nil, ErrInvalidResetToken
	}

	admin, err := s.store.GetAdminByID(ctx, reset.AdminID)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	hash, err := s.hashPassword(newPassword, admin.Email)
	if err != nil {
		return nil, err
	}

	if err := s.store.ConsumePasswordReset(ctx, reset.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	if err := s.store.UpdateAdminPassword(ctx, admin.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}
	slog.InfoContext(ctx, "admin_password_reset", "admin_id", admin.ID)
	return admin, nil
}

func (s *Service) resetLink(token string) string {
	return s.baseURL + ResetPath + "?token=" + url.QueryEscape(token)
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
