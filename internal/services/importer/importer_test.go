// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/campusvote/internal/testutil"
)

func TestImport(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	csvData := "Matric_No,Full Name,Email,Phone\n" +
		"CSC/001,Ada Obi,ADA@uni.edu,0801\n" +
		"CSC/002,Ben Eze,ben@uni.edu,\n" +
		",No Matric,x@uni.edu,\n" +
		"CSC/004,Bad Mail,not-an-email,\n" +
		"\n" +
		"CSC/001,Ada Again,ada2@uni.edu,\n"

	res, err := Import(ctx, repo, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "matric_no")
	assert.Equal(t, 5, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Message, "invalid email")

	ada, err := repo.GetStudentByMatricNo(ctx, "CSC/001")
	require.NoError(t, err)
	assert.Equal(t, "ada@uni.edu", ada.Email)
	assert.Equal(t, "Ada Obi", ada.FullName)
	assert.Equal(t, "0801", ada.Phone)
}

func TestImport_Aliases(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	res, err := Import(context.Background(), repo, strings.NewReader("\ufeffemail,name,matric\nc@uni.edu,Chi,EEE/9\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Empty(t, res.Errors)
}

func TestImport_HeaderErrors(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := Import(context.Background(), repo, strings.NewReader(""))
	require.ErrorIs(t, err, ErrHeader)

	_, err = Import(context.Background(), repo, strings.NewReader("matric_no,email\nA,a@b.c\n"))
	require.ErrorIs(t, err, ErrHeader)
	assert.Contains(t, err.Error(), "full_name")
}

func TestImport_Rerun(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	data := "matric_no,full_name,email\nA/1,A,a@uni.edu\nA/2,B,b@uni.edu\n"

	first, err := Import(context.Background(), repo, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := Import(context.Background(), repo, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	count, err := repo.CountStudents(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
