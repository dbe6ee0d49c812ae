// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package importer loads the student register from CSV.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
)

var ErrHeader = errors.New("invalid csv header")

// Store creates students.
type Store interface {
	CreateStudent(ctx context.Context, s *models.Student) error
}

// RowError describes a rejected data row. Row is 1-based and counts the
// header, so it matches what a spreadsheet shows.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarises an import.
type Result struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

var columnAliases = map[string]string{
	"matric_no": "matric_no",
	"matric":    "matric_no",
	"matricno":  "matric_no",
	"full_name": "full_name",
	"fullname":  "full_name",
	"name":      "full_name",
	"email":     "email",
	"phone":     "phone",
}

var requiredColumns = []string{"matric_no", "full_name", "email"}

var validate = validator.New()

// Import reads a CSV with a header row and creates one student per data
// row. Rows whose matriculation number or email already exists are
// counted as skipped. Invalid rows are reported and do not stop the import.
func Import(ctx context.Context, store Store, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrHeader)
		}
		return nil, fmt.Errorf("%w: %w", ErrHeader, err)
	}

	index, err := mapHeaders(headers)
	if err != nil {
		return nil, err
	}

	result := &Result{Errors: []RowError{}}
	row := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: row, Message: err.Error()})
			continue
		}
		if lo.EveryBy(record, func(v string) bool { return strings.TrimSpace(v) == "" }) {
			continue
		}

		student, msg := buildStudent(record, index)
		if msg != "" {
			result.Errors = append(result.Errors, RowError{Row: row, Message: msg})
			continue
		}

		switch err := store.CreateStudent(ctx, student); {
		case err == nil:
			result.Imported++
		case errors.Is(err, repository.ErrDuplicate):
			result.Skipped++
		default:
			return result, fmt.Errorf("row %d: %w", row, err)
		}
	}

	return result, nil
}

func mapHeaders(headers []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, seen := index[canonical]; !seen {
				index[canonical] = i
			}
		}
	}

	missing := lo.Filter(requiredColumns, func(c string, _ int) bool {
		_, ok := index[c]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", ErrHeader, strings.Join(missing, ", "))
	}
	return index, nil
}

func buildStudent(record []string, index map[string]int) (*models.Student, string) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	s := &models.Student{
		MatricNo: field("matric_no"),
		FullName: field("full_name"),
		Email:    field("email"),
		Phone:    field("phone"),
	}
	switch {
	case s.MatricNo == "":
		return nil, "matric_no is required"
	case s.FullName == "":
		return nil, "full_name is required"
	case validate.Var(s.Email, "required,email") != nil:
		return nil, fmt.Sprintf("invalid email %q", s.Email)
	}
	return s, ""
}
