// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"fmt"
	"testing"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	"codeberg.org/oliverandrich/campusvote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStudent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	s := &models.Student{MatricNo: " CSC/2020/001 ", FullName: "Ada Obi", Email: "Ada.Obi@Example.EDU"}
	require.NoError(t, repo.CreateStudent(ctx, s))

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "CSC/2020/001", s.MatricNo)
	assert.Equal(t, "ada.obi@example.edu", s.Email)

	got, err := repo.GetStudentByMatricNo(ctx, "CSC/2020/001")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "ada.obi@example.edu", got.Email)

	byID, err := repo.GetStudentByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", byID.FullName)
}

func TestCreateStudent_Duplicate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	testutil.NewTestStudent(t, repo, "CSC/2020/001")
	err := repo.CreateStudent(context.Background(), &models.Student{MatricNo: "CSC/2020/001", FullName: "Other", Email: "x@example.edu"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetStudentByMatricNo_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetStudentByMatricNo(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateAndDeleteStudent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	s := testutil.NewTestStudent(t, repo, "CSC/2020/001")
	s.Email = "NEW@example.edu"
	s.Phone = "0811111111"
	require.NoError(t, repo.UpdateStudent(ctx, s))

	got, err := repo.GetStudentByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", got.Email)
	assert.Equal(t, "0811111111", got.Phone)

	require.NoError(t, repo.DeleteStudent(ctx, s.ID))
	assert.ErrorIs(t, repo.DeleteStudent(ctx, s.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStudent(ctx, s), repository.ErrNotFound)
}

func TestListStudents(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		testutil.NewTestStudent(t, repo, fmt.Sprintf("CSC/2020/%03d", i))
	}
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{
		MatricNo: "ENG/2021/001", FullName: "Zainab Bello", Email: "zainab@example.edu", Phone: "0799",
	}))

	t.Run("paginates", func(t *testing.T) {
		page, total, err := repo.ListStudents(ctx, repository.StudentFilter{Page: repository.Page{Page: 2, PerPage: 5}})
		require.NoError(t, err)
		assert.Equal(t, int64(13), total)
		require.Len(t, page, 5)
		assert.Equal(t, "CSC/2020/006", page[0].MatricNo)
	})

	t.Run("search by name is case insensitive", func(t *testing.T) {
		found, total, err := repo.ListStudents(ctx, repository.StudentFilter{Search: "zAiNaB"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, found, 1)
		assert.Equal(t, "ENG/2021/001", found[0].MatricNo)
	})

	t.Run("search by phone", func(t *testing.T) {
		_, total, err := repo.ListStudents(ctx, repository.StudentFilter{Search: "0799"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("search by matric prefix", func(t *testing.T) {
		_, total, err := repo.ListStudents(ctx, repository.StudentFilter{Search: "csc/2020/01"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("column filters combine", func(t *testing.T) {
		_, total, err := repo.ListStudents(ctx, repository.StudentFilter{MatricNo: "csc", Email: "@students"})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)

		_, total, err = repo.ListStudents(ctx, repository.StudentFilter{MatricNo: "csc", FullName: "zainab"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	count, err := repo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(13), count)
}
