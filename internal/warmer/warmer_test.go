package warmer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/pkg/logger"
)

type fakeSetter struct {
	mu  sync.Mutex
	set map[string][]byte
}

func newFakeSetter() *fakeSetter { return &fakeSetter{set: make(map[string][]byte)} }

func (s *fakeSetter) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[key] = value
	return nil
}

func (s *fakeSetter) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[key]
	return ok
}

func (s *fakeSetter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}

func noDelayConfig() Config {
	cfg := DefaultConfig()
	cfg.DelayBetweenBatches = 0
	cfg.RetryDelay = 0
	return cfg
}

func TestRunWarmsAllEntries(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setter := newFakeSetter()
	w := New(clk, logger.New(logger.Config{Level: "error"}), noDelayConfig(), setter, nil)

	entries := []Entry{
		{Key: "a", Priority: 1, Fetch: func() ([]byte, error) { return []byte("A"), nil }},
		{Key: "b", Priority: 5, Fetch: func() ([]byte, error) { return []byte("B"), nil }},
		{Key: "c", Priority: 3, Fetch: func() ([]byte, error) { return []byte("C"), nil }},
	}

	w.Run(context.Background(), StrategyManual, entries)

	assert.True(t, setter.has("a"))
	assert.True(t, setter.has("b"))
	assert.True(t, setter.has("c"))

	stats := w.Stats()
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.Success)
	assert.Equal(t, int64(0), stats.Failure)
	assert.Equal(t, int64(0), stats.Pending)
}

func TestRunRetriesFailingEntryThenSucceeds(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setter := newFakeSetter()
	cfg := noDelayConfig()
	cfg.MaxRetries = 3

	var attempts int
	var mu sync.Mutex

	w := New(clk, logger.New(logger.Config{Level: "error"}), cfg, setter, nil)
	entries := []Entry{
		{Key: "flaky", Priority: 1, Fetch: func() ([]byte, error) {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n < 2 {
				return nil, errors.New("transient")
			}
			return []byte("ok"), nil
		}},
	}

	w.Run(context.Background(), StrategyManual, entries)

	assert.True(t, setter.has("flaky"))
	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Success)
	assert.Equal(t, int64(0), stats.Failure)
}

func TestRunExhaustsRetriesAndCountsFailure(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setter := newFakeSetter()
	cfg := noDelayConfig()
	cfg.MaxRetries = 2

	w := New(clk, logger.New(logger.Config{Level: "error"}), cfg, setter, nil)
	entries := []Entry{
		{Key: "broken", Priority: 1, Fetch: func() ([]byte, error) { return nil, errors.New("permanent") }},
	}

	w.Run(context.Background(), StrategyManual, entries)

	assert.False(t, setter.has("broken"))
	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Failure)
	assert.Equal(t, int64(0), stats.Success)
}

type fakePredictor struct {
	candidates []PreloadCandidate
}

func (p *fakePredictor) PredictiveCandidates() []PreloadCandidate { return p.candidates }

func TestRunPredictiveWarmsNominatedKeysWithSyntheticPriority(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setter := newFakeSetter()
	pred := &fakePredictor{candidates: []PreloadCandidate{
		{Key: "hot1", Score: 0.9},
		{Key: "hot2", Score: 0.8},
	}}
	w := New(clk, logger.New(logger.Config{Level: "error"}), noDelayConfig(), setter, pred)

	w.RunPredictive(context.Background(), func(key string) ([]byte, error) {
		return []byte(key), nil
	})

	assert.True(t, setter.has("hot1"))
	assert.True(t, setter.has("hot2"))
}

func TestParseIntervalAcceptsMinuteStepOnly(t *testing.T) {
	d, err := parseInterval("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = parseInterval("0 9 * * *")
	assert.Error(t, err)

	_, err = parseInterval("*/5 * * * 1")
	assert.Error(t, err)
}

func TestAddScheduleFiresOnTicker(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setter := newFakeSetter()
	w := New(clk, logger.New(logger.Config{Level: "error"}), noDelayConfig(), setter, nil)
	t.Cleanup(w.Close)

	ctx := context.Background()
	err := w.AddSchedule(ctx, Schedule{
		ID:   "sched1",
		Cron: "*/1 * * * *",
		Entries: []Entry{
			{Key: "scheduled-key", Priority: 1, Fetch: func() ([]byte, error) { return []byte("v"), nil }},
		},
		Enabled: true,
	})
	require.NoError(t, err)

	clk.Advance(61 * time.Second)

	require.Eventually(t, func() bool {
		return setter.count() == 1
	}, time.Second, time.Millisecond)
}
