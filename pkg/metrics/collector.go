// Copyright 2025 Takhin Data, Inc.

package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/takhin-data/stratum/internal/cache"
	"github.com/takhin-data/stratum/internal/tier"
	"github.com/takhin-data/stratum/internal/warmer"
)

// Collector periodically snapshots the tier engine, cache, and warmer's
// point-in-time stats into gauges, grounded on the teacher's
// collector.go ticker-driven collectLoop/collectMetrics shape
// (there driven by topic.Manager/coordinator.Coordinator state instead).
type Collector struct {
	engine *tier.Engine
	cache  *cache.MultiLevelCache
	warmer *warmer.Warmer

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu             sync.Mutex
	lastWarmupOK   int64
	lastWarmupFail int64
}

func NewCollector(engine *tier.Engine, c *cache.MultiLevelCache, w *warmer.Warmer, interval time.Duration) *Collector {
	return &Collector{
		engine:   engine,
		cache:    c,
		warmer:   w,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (c *Collector) Start() {
	c.wg.Add(1)
	go c.collectLoop()
}

func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) collectLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collectOnce()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) collectOnce() {
	if c.engine != nil {
		stats := c.engine.GetStatistics()
		for t, ts := range stats.ByTier {
			label := fmt.Sprintf("%v", t)
			TierItemCount.WithLabelValues(label).Set(float64(ts.ItemCount))
			TierBytes.WithLabelValues(label).Set(float64(ts.Bytes))
		}
	}

	if c.cache != nil {
		snap := c.cache.Analytics(0)
		CacheHits.WithLabelValues("l1").Add(0) // ensure series exists even at zero
		CacheHitRate.Set(snap.OverallHitRate)
		CacheSize.Set(float64(c.cache.Size()))
	}

	if c.warmer != nil {
		stats := c.warmer.Stats()
		RecordWarmupStats(stats)

		c.mu.Lock()
		if delta := stats.Success - c.lastWarmupOK; delta > 0 {
			WarmupSuccessTotal.Add(float64(delta))
		}
		if delta := stats.Failure - c.lastWarmupFail; delta > 0 {
			WarmupFailureTotal.Add(float64(delta))
		}
		c.lastWarmupOK = stats.Success
		c.lastWarmupFail = stats.Failure
		c.mu.Unlock()
	}
}
