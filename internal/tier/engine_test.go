package tier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/lifecycle"
	"github.com/takhin-data/stratum/pkg/logger"
)

func newTestEngine(t *testing.T, clk clock.Clock) (*Engine, *lifecycle.Tracker) {
	t.Helper()
	tracker := lifecycle.New(clk, lifecycle.DefaultConfig())
	ad := Adapters{
		Hot:  newMemKV(),
		Warm: newMemRows(),
		Cold: newMemRows(),
	}
	e := New(clk, tracker, logger.New(logger.Config{Level: "error"}), DefaultConfig(), ad)
	return e, tracker
}

func TestStoreThenRetrieve(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clk)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, "u1", []byte("V"), DataTypeUserProfile, StoreOptions{}))

	v, ok, err := e.Retrieve(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("V"), v)
}

func TestStoreOverwriteThenRetrieveReturnsLatest(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clk)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, "k", []byte("V1"), DataTypeUserProfile, StoreOptions{}))
	require.NoError(t, e.Store(ctx, "k", []byte("V2"), DataTypeUserProfile, StoreOptions{}))

	v, ok, err := e.Retrieve(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("V2"), v)
}

func TestDeleteThenRetrieveReturnsAbsent(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clk)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, "k", []byte("V"), DataTypeUserProfile, StoreOptions{}))
	require.NoError(t, e.Delete(ctx, "k"))

	_, ok, err := e.Retrieve(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieveUnknownKeyReturnsAbsentWithoutError(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clk)

	_, ok, err := e.Retrieve(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

// scenario 2 from spec §8: demotion by age.
func TestPerformMigrationDemotesStaleWarmItemToCold(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, tracker := newTestEngine(t, clk)
	ctx := context.Background()

	warmTier := Warm
	require.NoError(t, e.Store(ctx, "k", []byte("V"), DataTypeMessage, StoreOptions{Tier: &warmTier}))

	// Seed created_at = now-40d, last_access_at = now-31d, access_count = 2.
	e.mu.Lock()
	meta := e.metadata["k"]
	meta.CreatedAt = clk.Now().Add(-40 * 24 * time.Hour)
	meta.LastAccessedAt = clk.Now().Add(-31 * 24 * time.Hour)
	meta.AccessCount = 2
	e.mu.Unlock()

	// The tracker must agree the key is stale so it is nominated.
	clk.Advance(2 * time.Hour)
	_ = tracker

	result := e.PerformMigration(ctx)
	require.Equal(t, 1, result.Migrated)

	e.mu.RLock()
	tierAfter := e.metadata["k"].Tier
	e.mu.RUnlock()
	assert.Equal(t, Cold, tierAfter)

	log := e.MigrationLog()
	require.Len(t, log, 1)
	assert.Equal(t, Warm, log[0].From)
	assert.Equal(t, Cold, log[0].To)

	v, ok, err := e.Retrieve(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("V"), v)
}

func TestDetermineTargetTierFirstMatchWins(t *testing.T) {
	// age_days > 90 and stale_days < 7: WARM wins (freshness dominates age),
	// per spec.md §4.1's explicit tie-break example.
	got := DetermineTargetTier(120, 3, 2, Cold)
	assert.Equal(t, Warm, got)

	// freq > 10 and stale_days < 1: HOT, even with a large age.
	got = DetermineTargetTier(200, 0.5, 20, Warm)
	assert.Equal(t, Hot, got)
}

func TestPlacementPolicy(t *testing.T) {
	cases := map[DataType]Tier{
		DataTypeUserProfile:      Hot,
		DataTypeBotState:         Hot,
		DataTypeConfiguration:    Hot,
		DataTypeConversation:     Warm,
		DataTypeMessage:          Warm,
		DataTypeCodeModification: Warm,
		DataTypeEmbedding:        Warm,
		DataTypeAnalytics:        Cold,
	}
	for dt, want := range cases {
		assert.Equal(t, want, InitialTier(dt), dt)
	}
}
