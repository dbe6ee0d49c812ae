// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/campusvote/internal/models"
)

// StudentFilter narrows ListStudents. All matches are case-insensitive
// substrings. Search matches any of the four columns, the other fields
// match their own column. Set fields are combined with AND.
type StudentFilter struct {
	Search   string
	MatricNo string
	FullName string
	Email    string
	Phone    string
	Page
}

func (f StudentFilter) where() (string, []any) {
	var conds []string
	var args []any
	like := func(v string) string { return "%" + strings.ToLower(strings.TrimSpace(v)) + "%" }

	if strings.TrimSpace(f.Search) != "" {
		conds = append(conds, `(LOWER(matric_no) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?)`)
		term := like(f.Search)
		args = append(args, term, term, term, term)
	}
	for _, col := range []struct{ name, value string }{
		{"matric_no", f.MatricNo},
		{"full_name", f.FullName},
		{"email", f.Email},
		{"phone", f.Phone},
	} {
		if strings.TrimSpace(col.value) != "" {
			conds = append(conds, `LOWER(`+col.name+`) LIKE ?`)
			args = append(args, like(col.value))
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// NormalizeEmail is the stored form of every student email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateStudent inserts a student, assigning an ID when none is set.
func (r *Repository) CreateStudent(ctx context.Context, s *models.Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.MatricNo = strings.TrimSpace(s.MatricNo)
	s.Email = NormalizeEmail(s.Email)
	s.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO students (id, matric_no, full_name, email, phone, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, s.MatricNo, s.FullName, s.Email, s.Phone, s.CreatedAt)
	return wrapError(err)
}

// GetStudentByID retrieves a student by ID.
func (r *Repository) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	var s models.Student
	if err := r.db.GetContext(ctx, &s, r.q(`SELECT * FROM students WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// GetStudentByMatricNo retrieves a student by matriculation number.
func (r *Repository) GetStudentByMatricNo(ctx context.Context, matricNo string) (*models.Student, error) {
	var s models.Student
	err := r.db.GetContext(ctx, &s, r.q(`SELECT * FROM students WHERE matric_no = ?`), strings.TrimSpace(matricNo))
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// UpdateStudent overwrites the mutable fields of a student.
func (r *Repository) UpdateStudent(ctx context.Context, s *models.Student) error {
	s.Email = NormalizeEmail(s.Email)
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE students SET matric_no = ?, full_name = ?, email = ?, phone = ? WHERE id = ?`),
		strings.TrimSpace(s.MatricNo), s.FullName, s.Email, s.Phone, s.ID)
	return requireAffected(res, err)
}

// DeleteStudent deletes a student and, through the foreign key, their votes.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM students WHERE id = ?`), id)
	return requireAffected(res, err)
}

// ListStudents returns one page of students ordered by matriculation number
// together with the total number of matches.
func (r *Repository) ListStudents(ctx context.Context, f StudentFilter) ([]models.Student, int64, error) {
	where, args := f.where()

	var total int64
	if err := r.db.GetContext(ctx, &total, r.q(`SELECT COUNT(*) FROM students`+where), args...); err != nil {
		return nil, 0, err
	}

	limit, offset := f.limitOffset()
	students := []models.Student{}
	err := r.db.SelectContext(ctx, &students,
		r.q(`SELECT * FROM students`+where+` ORDER BY matric_no LIMIT ? OFFSET ?`),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// CountStudents returns the number of registered students.
func (r *Repository) CountStudents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students`)
	return count, err
}
