package risk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		name     string
		statuses []MeasureStatus
		want     int
	}{
		{"empty", nil, 0},
		{"single completed", []MeasureStatus{"completed"}, 100},
		{"done counts as completed", []MeasureStatus{"done", "open"}, 50},
		{"rounds third down", []MeasureStatus{"not_started", "not_started", "completed"}, 33},
		{"rounds two thirds up", []MeasureStatus{"done", "completed", "open"}, 67},
		{"half up", []MeasureStatus{"done", "open", "open", "open", "open", "open", "open", "open"}, 13},
		{"unknown is not terminal", []MeasureStatus{"archived", "done"}, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProgressPercent(tc.statuses))
		})
	}
}

func TestProgressRecomputedFromCurrentStatuses(t *testing.T) {
	type measure struct{ status MeasureStatus }
	measures := []measure{{"open"}, {"completed"}, {"done"}, {"blocked"}}
	statusOf := func(m measure) MeasureStatus { return m.status }

	assert.Equal(t, 50, ProgressOf(measures, statusOf))

	measures[0].status = "completed"
	assert.Equal(t, 75, ProgressOf(measures, statusOf))
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, NormalizeStatus("done"))
	assert.Equal(t, StatusCompleted, NormalizeStatus(" Completed "))
	assert.Equal(t, StatusInProgress, NormalizeStatus("In Progress"))
	assert.Equal(t, StatusNotStarted, NormalizeStatus("not-started"))
	assert.Equal(t, MeasureStatus("Waiting on vendor"), NormalizeStatus(" Waiting on vendor "))
	assert.False(t, NormalizeStatus("Waiting on vendor").Known())
	assert.True(t, StatusBlocked.Known())
}

func TestMeasureStatusBoundaries(t *testing.T) {
	var fromDB MeasureStatus
	require.NoError(t, fromDB.Scan([]byte("done")))
	assert.Equal(t, StatusCompleted, fromDB)

	require.NoError(t, fromDB.Scan(nil))
	assert.Equal(t, StatusNotStarted, fromDB)

	assert.Error(t, fromDB.Scan(42))

	var payload struct {
		Status MeasureStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"DONE"}`), &payload))
	assert.Equal(t, StatusCompleted, payload.Status)

	value, err := MeasureStatus("done").Value()
	require.NoError(t, err)
	assert.Equal(t, "completed", value)
}
