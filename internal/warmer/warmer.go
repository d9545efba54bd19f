// Copyright 2025 Takhin Data, Inc.

package warmer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/pkg/logger"
)

// Warmer runs batched, priority-ordered warm-up passes against a cache,
// either on demand or on a schedule. Dispatch within a batch is bounded both
// by cfg.Parallelism (concurrent in-flight fetches) and, when configured, by
// a token-bucket rate.Limiter capping entries-per-second across the whole
// batch — the same two-axis throttle the teacher's pkg/throttle applies to
// producer/consumer byte rates, repurposed here for warm-up dispatch.
type Warmer struct {
	clock   clock.Clock
	cfg     Config
	setter  Setter
	pred    Predictor
	log     *logger.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	total     int64
	success   int64
	failure   int64
	pending   int64
	latencyNs int64
	samples   int64
	lastRun   time.Time

	schedules map[string]*scheduleRun

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type scheduleRun struct {
	sched    Schedule
	interval time.Duration
	cancel   chan struct{}
}

func New(clk clock.Clock, log *logger.Logger, cfg Config, setter Setter, pred Predictor) *Warmer {
	w := &Warmer{
		clock:     clk,
		cfg:       cfg,
		setter:    setter,
		pred:      pred,
		log:       log.WithComponent("warmer"),
		schedules: make(map[string]*scheduleRun),
		stopCh:    make(chan struct{}),
	}
	if cfg.MaxEntriesPerSecond > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.MaxEntriesPerSecond), max(1, int(cfg.MaxEntriesPerSecond)))
	}
	return w
}

// Stats snapshots the warm-up counters from spec.md §4.6.
func (w *Warmer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	var avg float64
	if w.samples > 0 {
		avg = float64(w.latencyNs) / float64(w.samples) / 1e6
	}
	return Stats{
		Total:           w.total,
		Success:         w.success,
		Failure:         w.failure,
		Pending:         w.pending,
		AvgWarmupTimeMs: avg,
		LastWarmupAt:    w.lastRun,
	}
}

// Run executes one warm-up pass over entries: sorted by descending
// priority, processed in batches of cfg.BatchSize, with up to
// cfg.Parallelism concurrent fetches per batch and cfg.DelayBetweenBatches
// between batches.
func (w *Warmer) Run(ctx context.Context, strategy Strategy, entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sortByPriorityDesc(sorted)

	w.mu.Lock()
	w.pending += int64(len(sorted))
	w.mu.Unlock()

	batchSize := w.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(sorted)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	for start := 0; start < len(sorted); start += batchSize {
		end := start + batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		w.runBatch(ctx, sorted[start:end])

		if end < len(sorted) && w.cfg.DelayBetweenBatches > 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.clock.After(w.cfg.DelayBetweenBatches):
			}
		}
	}

	w.mu.Lock()
	w.lastRun = w.clock.Now()
	w.mu.Unlock()

	w.log.Info("warm-up pass complete", "strategy", strategy, "entries", len(sorted))
}

func (w *Warmer) runBatch(ctx context.Context, batch []Entry) {
	parallelism := w.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)

	var wg sync.WaitGroup
	for _, entry := range batch {
		entry := entry
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.warmOne(ctx, entry)
		}()
	}
	wg.Wait()
}

func (w *Warmer) warmOne(ctx context.Context, entry Entry) {
	start := w.clock.Now()
	defer func() {
		w.mu.Lock()
		w.pending--
		w.total++
		w.latencyNs += w.clock.Now().Sub(start).Nanoseconds()
		w.samples++
		w.mu.Unlock()
	}()

	maxRetries := w.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		value, err := w.fetchWithTimeout(ctx, entry.Fetch)
		if err == nil {
			if err := w.setter.Set(entry.Key, value); err != nil {
				lastErr = err
			} else {
				w.mu.Lock()
				w.success++
				w.mu.Unlock()
				return
			}
		} else {
			lastErr = err
		}

		if attempt < maxRetries {
			backoff := w.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				w.mu.Lock()
				w.failure++
				w.mu.Unlock()
				return
			case <-w.clock.After(backoff):
			}
		}
	}

	w.mu.Lock()
	w.failure++
	w.mu.Unlock()
	w.log.Warn("warm-up entry failed", "key", entry.Key, "error", lastErr)
}

func (w *Warmer) fetchWithTimeout(ctx context.Context, fetch func() ([]byte, error)) ([]byte, error) {
	timeout := w.cfg.Timeout
	if timeout <= 0 {
		return fetch()
	}

	type result struct {
		value []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fetch()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-w.clock.After(timeout):
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sortByPriorityDesc(entries []Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Priority > entries[j-1].Priority; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// RunPredictive nominates keys via Predictor and warms them with synthetic
// priority derived from their prediction score, per spec.md §4.6.
func (w *Warmer) RunPredictive(ctx context.Context, fetch func(key string) ([]byte, error)) {
	if w.pred == nil {
		return
	}
	candidates := w.pred.PredictiveCandidates()

	max := w.cfg.MaxPredictiveKeys
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	entries := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		c := c
		entries = append(entries, Entry{
			Key:      c.Key,
			Priority: int(c.Score * 100),
			Fetch:    func() ([]byte, error) { return fetch(c.Key) },
		})
	}

	w.Run(ctx, StrategyPredictive, entries)
}

// AddSchedule registers a WarmUpSchedule and, if enabled, starts its
// periodic ticker. After each execution the schedule reschedules itself for
// the next tick (spec.md §4.6).
func (w *Warmer) AddSchedule(ctx context.Context, sched Schedule) error {
	interval, err := parseInterval(sched.Cron)
	if err != nil {
		return err
	}

	run := &scheduleRun{sched: sched, interval: interval, cancel: make(chan struct{})}

	w.mu.Lock()
	if prev, ok := w.schedules[sched.ID]; ok {
		close(prev.cancel)
	}
	w.schedules[sched.ID] = run
	w.mu.Unlock()

	if !sched.Enabled {
		return nil
	}

	ticker := w.clock.NewTicker(interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				w.Run(ctx, StrategyScheduled, run.sched.Entries)
			case <-run.cancel:
				return
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// RemoveSchedule cancels a previously-registered schedule.
func (w *Warmer) RemoveSchedule(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if run, ok := w.schedules[id]; ok {
		close(run.cancel)
		delete(w.schedules, id)
	}
}

// Close cancels all schedules and waits for their goroutines to exit.
func (w *Warmer) Close() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}
