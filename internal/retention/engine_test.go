package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/tier"
	"github.com/takhin-data/stratum/pkg/logger"
)

// fakeStore is a minimal in-memory Store used only by these tests.
type fakeStore struct {
	mu      sync.Mutex
	items   map[string]Item
	deleted map[string]bool
	archived map[string]bool
	demoted map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: make(map[string]Item), deleted: make(map[string]bool),
		archived: make(map[string]bool), demoted: make(map[string]bool),
	}
}

func (f *fakeStore) ItemsFor(dataType tier.DataType, tr tier.Tier) []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Item
	for _, it := range f.items {
		if it.DataType == dataType && it.Tier == tr {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeStore) DeleteItem(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[key] = true
	delete(f.items, key)
	return nil
}

func (f *fakeStore) ArchiveItem(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[key] = true
	delete(f.items, key)
	return nil
}

func (f *fakeStore) DemoteItem(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.demoted[key] = true
	delete(f.items, key)
	return nil
}

// scenario 5 from spec §8: retention violation severity.
func TestEnforceOneSeverityDrivesAction(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newFakeStore()
	log := logger.New(logger.Config{Level: "error"})
	e := New(clk, store, log)

	p := Policy{
		ID: "p1", Name: "hot-user-profile-test", DataType: tier.DataTypeUserProfile,
		Tier: tier.Hot, MaxRetentionDays: 7, Enabled: true, Priority: 100,
	}
	e.AddPolicy(p)

	store.items["high"] = Item{Key: "high", DataType: tier.DataTypeUserProfile, Tier: tier.Hot, CreatedAt: clk.Now().Add(-15 * 24 * time.Hour)}
	store.items["critical"] = Item{Key: "critical", DataType: tier.DataTypeUserProfile, Tier: tier.Hot, CreatedAt: clk.Now().Add(-20 * 24 * time.Hour)}

	report, err := e.EnforceOne(context.Background(), "hot-user-profile-test")
	require.NoError(t, err)

	assert.Equal(t, 2, report.ItemsChecked)
	assert.Equal(t, 2, report.ViolationsFound)
	assert.True(t, store.archived["high"])
	assert.True(t, store.deleted["critical"])

	violations := e.Violations()
	require.Len(t, violations, 2)
}

func TestAccessCountExceededAlwaysDemotes(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newFakeStore()
	log := logger.New(logger.Config{Level: "error"})
	e := New(clk, store, log)

	max := int64(10)
	p := Policy{
		ID: "p2", Name: "access-count-test", DataType: tier.DataTypeUserProfile,
		Tier: tier.Hot, MaxRetentionDays: 0, MaxAccessCount: &max, Enabled: true, Priority: 100,
	}
	e.AddPolicy(p)

	store.items["k"] = Item{
		Key: "k", DataType: tier.DataTypeUserProfile, Tier: tier.Hot,
		CreatedAt: clk.Now(), AccessCount: 11,
	}

	report, err := e.EnforceOne(context.Background(), "access-count-test")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)
	assert.True(t, store.demoted["k"])
}

func TestEnforceAllIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newFakeStore()
	log := logger.New(logger.Config{Level: "error"})
	e := New(clk, store, log)

	store.items["k"] = Item{
		Key: "k", DataType: tier.DataTypeMessage, Tier: tier.Warm,
		CreatedAt: clk.Now().Add(-100 * 24 * time.Hour),
	}

	_, err := e.EnforceAll(context.Background())
	require.NoError(t, err)

	// Second run: the item was removed by the first pass, so there must be
	// zero new violations.
	before := len(e.Violations())
	_, err = e.EnforceAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, len(e.Violations()))
}
