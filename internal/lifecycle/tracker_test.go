package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takhin-data/stratum/internal/clock"
)

func TestTrackThenRecordAccess(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(clk, DefaultConfig())

	tr.Track("k")
	assert.Equal(t, int64(1), tr.AccessCount("k"))

	clk.Advance(time.Second)
	tr.RecordAccess("k", 0)
	assert.Equal(t, int64(2), tr.AccessCount("k"))
}

func TestRemovePurgesState(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(clk, DefaultConfig())
	tr.Track("k")
	tr.Remove("k")
	assert.Equal(t, int64(0), tr.AccessCount("k"))
	assert.Nil(t, tr.Analyze("k"))
}

func TestMigrationCandidatesOrderedByStaleness(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(clk, DefaultConfig())

	tr.Track("old")
	clk.Advance(time.Hour)
	tr.Track("older")
	clk.Advance(2 * time.Hour)

	candidates := tr.MigrationCandidates(10)
	require.Len(t, candidates, 2)
	assert.Equal(t, "old", candidates[0].Key)
	assert.Equal(t, "older", candidates[1].Key)
}

func TestAnalyzeTrendIncreasing(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(clk, DefaultConfig())
	tr.Track("k")

	// First half: coarse intervals. Second half: much tighter intervals.
	for i := 0; i < 3; i++ {
		clk.Advance(10 * time.Second)
		tr.RecordAccess("k", 0)
	}
	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		tr.RecordAccess("k", 0)
	}

	pattern := tr.Analyze("k")
	require.NotNil(t, pattern)
	assert.Equal(t, TrendIncreasing, pattern.Trend)
}
