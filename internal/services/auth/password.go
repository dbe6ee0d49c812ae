// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// bcryptMaxBytes is the longest input bcrypt accepts.
const bcryptMaxBytes = 72

// PasswordValidator is the policy for administrator passwords.
type PasswordValidator struct {
	MinLength           int
	MaxBytes            int
	CheckUserSimilarity bool
}

// DefaultPasswordValidator is the policy applied to admin passwords.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:           12,
		MaxBytes:            bcryptMaxBytes,
		CheckUserSimilarity: true,
	}
}

// ValidationError is one failed password rule.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError is returned when a new password breaks the policy.
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns the message of every failed rule.
func (e *PasswordValidationError) Messages() []string {
	return lo.Map(e.Errors, func(err ValidationError, _ int) string { return err.Message })
}

type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

type passwordRule struct {
	code    string
	help    string
	message string
	broken  func(password string, attrs []string) bool
}

func (v *PasswordValidator) rules() []passwordRule {
	rules := []passwordRule{
		{
			code:    "min_length",
			help:    fmt.Sprintf("At least %d characters", v.MinLength),
			message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
			broken:  func(p string, _ []string) bool { return len([]rune(p)) < v.MinLength },
		},
		{
			code:    "entirely_numeric",
			help:    "Cannot be entirely numeric",
			message: "Password cannot be entirely numeric.",
			broken:  func(p string, _ []string) bool { return p != "" && strings.IndexFunc(p, notDigit) < 0 },
		},
	}
	if v.MaxBytes > 0 {
		rules = append(rules, passwordRule{
			code:    "max_length",
			help:    fmt.Sprintf("At most %d bytes", v.MaxBytes),
			message: fmt.Sprintf("Password must be at most %d bytes long.", v.MaxBytes),
			broken:  func(p string, _ []string) bool { return len(p) > v.MaxBytes },
		})
	}
	if v.CheckUserSimilarity {
		rules = append(rules, passwordRule{
			code:    "too_similar",
			help:    "Not too similar to the login email",
			message: "Password is too similar to the login email.",
			broken:  isSimilarToAttributes,
		})
	}
	return rules
}

// Validate checks password against every rule. attrs are account details
// (usually the email) the password must not resemble.
func (v *PasswordValidator) Validate(password string, attrs ...string) ValidationResult {
	errs := lo.FilterMap(v.rules(), func(r passwordRule, _ int) (ValidationError, bool) {
		return ValidationError{Code: r.code, Message: r.message}, r.broken(password, attrs)
	})
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// GetHelpTexts describes the policy for display next to a password prompt.
func (v *PasswordValidator) GetHelpTexts() []string {
	return lo.Map(v.rules(), func(r passwordRule, _ int) string { return r.help })
}

func notDigit(r rune) bool { return !unicode.IsDigit(r) }

// isSimilarToAttributes reports whether the password contains or is contained
// in an attribute. Emails are also compared by their local part.
func isSimilarToAttributes(password string, attrs []string) bool {
	password = strings.ToLower(password)
	if password == "" {
		return false
	}

	candidates := make([]string, 0, len(attrs)*2)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		candidates = append(candidates, attr)
		if local, _, ok := strings.Cut(attr, "@"); ok && len(local) >= 4 {
			candidates = append(candidates, local)
		}
	}

	return lo.SomeBy(candidates, func(attr string) bool {
		return strings.Contains(password, attr) || strings.Contains(attr, password)
	})
}
