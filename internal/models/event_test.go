// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/campusvote/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotingEvent_MarshalJSON(t *testing.T) {
	event := models.VotingEvent{
		ID:        "e1",
		Name:      "SRC 2025",
		StartTime: sql.NullString{String: "2025-03-01T08:00:00Z", Valid: true},
		IsActive:  true,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "e1", got["id"])
	assert.Equal(t, "2025-03-01T08:00:00Z", got["start_time"])
	assert.Nil(t, got["end_time"])
	assert.Equal(t, true, got["is_active"])
}

func TestOneTimeCode_Redeemable(t *testing.T) {
	expires := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	code := &models.OneTimeCode{ExpiresAt: expires}

	assert.True(t, code.Redeemable(expires.Add(-time.Minute)))
	assert.True(t, code.Redeemable(expires), "expiry instant is still valid")
	assert.False(t, code.Redeemable(expires.Add(time.Nanosecond)))

	code.Used = true
	assert.False(t, code.Redeemable(expires.Add(-time.Minute)))
}
