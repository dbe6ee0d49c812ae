// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and redeems the one-time passwords students log in with.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/services/email"
)

// CodeLength is the number of decimal digits in a code.
const CodeLength = 6

// DefaultTTL is how long an issued code stays redeemable.
const DefaultTTL = 10 * time.Minute

var (
	// ErrValidation reports missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrStudentNotFound means no student has the given matriculation number.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidOrExpired is returned for any code that cannot be redeemed.
	ErrInvalidOrExpired = errors.New("invalid or expired OTP")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")
)

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random six digit code, zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// Store is the persistence the service needs.
type Store interface {
	GetStudentByMatricNo(ctx context.Context, matricNo string) (*models.Student, error)
	ReplaceOneTimeCode(ctx context.Context, code *models.OneTimeCode) error
	FindRedeemableCode(ctx context.Context, matricNo, email, code string, now time.Time) (*models.OneTimeCode, error)
	ConsumeOneTimeCode(ctx context.Context, id int64) error
	RecentOneTimeCodes(ctx context.Context, matricNo, email string, limit int) ([]models.OneTimeCode, error)
}

// Service issues one-time codes and redeems them for a student login.
type Service struct {
	store    Store
	sender   email.Sender
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
	logger   *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGenerator replaces the random code generator.
func WithGenerator(generate func() (string, error)) Option {
	return func(s *Service) { s.generate = generate }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service that mails codes through sender. Codes stay
// redeemable for ttl, or DefaultTTL when ttl is not positive.
func NewService(store Store, sender email.Sender, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		store:    store,
		sender:   sender,
		ttl:      ttl,
		now:      time.Now,
		generate: GenerateCode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueResult reports the outcome of Issue. The code is persisted and
// redeemable even when EmailSent is false.
type IssueResult struct {
	Student    *models.Student
	ExpiresAt  time.Time
	EmailSent  bool
	EmailError string
}

// Issue creates a fresh code for the student with the given matriculation
// number, supersedes earlier ones and tries to mail it.
func (s *Service) Issue(ctx context.Context, matricNo string) (*IssueResult, error) {
	matricNo = strings.TrimSpace(matricNo)
	if matricNo == "" {
		return nil, fmt.Errorf("%w: matric_no is required", ErrValidation)
	}

	student, err := s.store.GetStudentByMatricNo(ctx, matricNo)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup student: %w", ErrStorage, err)
	}

	value, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	now := s.now().UTC()
	code := &models.OneTimeCode{
		MatricNo:  student.MatricNo,
		Email:     repository.NormalizeEmail(student.Email),
		Code:      value,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.ReplaceOneTimeCode(ctx, code); err != nil {
		return nil, fmt.Errorf("%w: store code: %w", ErrStorage, err)
	}

	result := &IssueResult{Student: student, ExpiresAt: code.ExpiresAt, EmailSent: true}
	if err := s.sender.SendOTP(ctx, code.Email, value); err != nil {
		s.logger.WarnContext(ctx, "otp delivery failed", "matric_no", student.MatricNo, "error", err)
		result.EmailSent = false
		result.EmailError = err.Error()
	}
	return result, nil
}

// VerifyInput holds the values a student submits to log in.
type VerifyInput struct {
	MatricNo string
	Email    string
	Code     string
}

// Debug describes the lookup of a failed verification. It never contains
// code values.
type Debug struct {
	MatricNo string      `json:"matric_no"`
	Email    string      `json:"email"`
	Now      time.Time   `json:"now"`
	Recent   []DebugCode `json:"recent_codes"`
}

// DebugCode summarises one recent code without its value.
type DebugCode struct {
	Used      bool      `json:"used"`
	Expired   bool      `json:"expired"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// VerifyError is returned for a rejected code. It matches
// ErrInvalidOrExpired and carries lookup details for diagnostics.
type VerifyError struct {
	Debug Debug
}

func (e *VerifyError) Error() string        { return ErrInvalidOrExpired.Error() }
func (e *VerifyError) Is(target error) bool { return target == ErrInvalidOrExpired }

// Verify redeems a code. Wrong, expired and already used codes all fail with
// ErrInvalidOrExpired. On success the code is consumed and the student returned.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*models.Student, error) {
	matricNo := strings.TrimSpace(in.MatricNo)
	mail := repository.NormalizeEmail(in.Email)
	code := strings.TrimSpace(in.Code)
	if matricNo == "" || mail == "" || code == "" {
		return nil, fmt.Errorf("%w: missing matric_no, email, or otp", ErrValidation)
	}

	now := s.now().UTC()
	found, err := s.store.FindRedeemableCode(ctx, matricNo, mail, code, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.reject(ctx, matricNo, mail, now)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup code: %w", ErrStorage, err)
	}

	// A concurrent redemption may have won between lookup and update
	if err := s.store.ConsumeOneTimeCode(ctx, found.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject(ctx, matricNo, mail, now)
		}
		return nil, fmt.Errorf("%w: consume code: %w", ErrStorage, err)
	}

	student, err := s.store.GetStudentByMatricNo(ctx, matricNo)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup student: %w", ErrStorage, err)
	}
	return student, nil
}

func (s *Service) reject(ctx context.Context, matricNo, mail string, now time.Time) error {
	verr := &VerifyError{Debug: Debug{MatricNo: matricNo, Email: mail, Now: now, Recent: []DebugCode{}}}

	recent, err := s.store.RecentOneTimeCodes(ctx, matricNo, mail, 5)
	if err != nil {
		s.logger.WarnContext(ctx, "loading otp debug details failed", "matric_no", matricNo, "error", err)
		return verr
	}
	for _, c := range recent {
		verr.Debug.Recent = append(verr.Debug.Recent, DebugCode{
			Used:      c.Used,
			Expired:   now.After(c.ExpiresAt),
			ExpiresAt: c.ExpiresAt,
			CreatedAt: c.CreatedAt,
		})
	}
	return verr
}
