// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package results_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
	"codeberg.org/oliverandrich/campusvote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(position, candidate string, votes int64) models.ResultRow {
	return models.ResultRow{
		PositionID: position, PositionName: position,
		CandidateID: candidate, CandidateName: candidate,
		VoteCount: votes,
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		rows []models.ResultRow
		want results.Summary
	}{
		{"empty", nil, results.Summary{}},
		{
			"every position voted",
			[]models.ResultRow{row("President", "Ada", 3), row("President", "Bola", 1), row("Treasurer", "Chidi", 2)},
			results.Summary{TotalVotes: 6, Turnout: 100, Abstentions: 0},
		},
		{
			"one of three positions without votes",
			[]models.ResultRow{row("President", "Ada", 3), row("Treasurer", "Chidi", 0), row("Secretary", "Dayo", 1)},
			results.Summary{TotalVotes: 4, Turnout: 67, Abstentions: 1},
		},
		{
			"nothing voted",
			[]models.ResultRow{row("President", "Ada", 0), row("President", "Bola", 0)},
			results.Summary{TotalVotes: 0, Turnout: 0, Abstentions: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, results.Summarize(tt.rows))
		})
	}
}

func TestWriteCSV(t *testing.T) {
	event := &models.VotingEvent{Name: "SRC 2025"}
	report := &results.Report{Rows: []models.ResultRow{
		row("President", "Ada, Jr.", 3),
		row("Treasurer", "Chidi", 0),
	}}

	var buf bytes.Buffer
	err := results.WriteCSV(context.Background(), &buf, event, report, time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Campus Vote - SRC 2025 (2025-07-07)", lines[0])
	assert.Equal(t, "Position,Candidate,Votes", lines[1])
	assert.Equal(t, `President,"Ada, Jr.",3`, lines[2])
	assert.Equal(t, "Treasurer,Chidi,0", lines[3])
	assert.Equal(t, "--- Exported from Online Voting System ---", lines[4])
}

func TestService_Report(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "SRC", "", "", true)
	president := testutil.NewTestPosition(t, repo, "President")
	ada := testutil.NewTestCandidate(t, repo, president.ID, "Ada")
	student := testutil.NewTestStudent(t, repo, "CSC001")
	require.NoError(t, repo.InsertVote(ctx, &models.Vote{
		StudentID: student.ID, CandidateID: ada.ID, PositionID: president.ID, VotingEventID: event.ID,
	}))

	svc := results.NewService(repo, sse.NewHub(), nil)
	report, err := svc.Report(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, event.ID, report.EventID)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(1), report.Summary.TotalVotes)
	assert.Equal(t, 100, report.Summary.Turnout)
	assert.Equal(t, int64(1), report.Voters)
}

func TestService_VoteRecordedPublishesToSubscribers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	event := testutil.NewTestEvent(t, repo, "SRC", "", "", true)
	hub := sse.NewHub()
	svc := results.NewService(repo, hub, nil)

	sub := hub.Subscribe(event.ID, "admin")
	defer sub.Close()

	svc.VoteRecorded(context.Background(), event.ID)

	select {
	case msg := <-sub.C:
		assert.True(t, strings.HasPrefix(msg, "event: results\ndata: {"))
		assert.Contains(t, msg, `"event_id":"`+event.ID+`"`)
	case <-time.After(time.Second):
		t.Fatal("expected a results event")
	}
}

func TestService_VoteRecordedWithoutHub(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := results.NewService(repo, nil, nil)

	assert.NotPanics(t, func() { svc.VoteRecorded(context.Background(), "whatever") })
}
