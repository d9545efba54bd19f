// Copyright 2025 Takhin Data, Inc.

package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/takhin-data/stratum/pkg/config"
	"github.com/takhin-data/stratum/pkg/logger"
)

var (
	// Tier engine metrics (spec.md §4.1 / §6 metrics surface)
	TierItemCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stratum_tier_items",
			Help: "Number of items resident in each tier",
		},
		[]string{"tier"},
	)

	TierBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stratum_tier_bytes",
			Help: "Estimated bytes resident in each tier",
		},
		[]string{"tier"},
	)

	MigrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_migrations_total",
			Help: "Total number of successful tier migrations",
		},
	)

	MigrationsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_migrations_failed_total",
			Help: "Total number of failed tier migrations",
		},
	)

	MigrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratum_migration_duration_seconds",
			Help:    "Duration of one PerformMigration pass in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	// Retention engine metrics (spec.md §4.3)
	RetentionItemsChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_retention_items_checked_total",
			Help: "Total number of items evaluated by retention enforcement",
		},
	)

	RetentionViolationsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_retention_violations_found_total",
			Help: "Total number of retention policy violations detected",
		},
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_retention_deleted_total",
			Help: "Total number of items deleted by retention enforcement",
		},
	)

	RetentionArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_retention_archived_total",
			Help: "Total number of items archived by retention enforcement",
		},
	)

	RetentionMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_retention_moved_total",
			Help: "Total number of items demoted/moved by retention enforcement",
		},
	)

	// Multi-Level Cache metrics (spec.md §4.4)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_cache_hits_total",
			Help: "Total number of cache hits by layer",
		},
		[]string{"layer"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_cache_misses_total",
			Help: "Total number of cache misses by layer",
		},
		[]string{"layer"},
	)

	CacheHitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_cache_overall_hit_rate",
			Help: "Overall cache hit rate across all layers (0-1)",
		},
	)

	CacheRequestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratum_cache_request_latency_seconds",
			Help:    "Cache Get request latency in seconds across all layers",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_cache_l1_size",
			Help: "Current number of entries held in L1",
		},
	)

	// Cache Invalidation Manager metrics (spec.md §4.5)
	InvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_invalidations_total",
			Help: "Total number of cache invalidations by type (ttl, manual, tag, dependency, pattern)",
		},
		[]string{"type"},
	)

	// Cache Warmer metrics (spec.md §4.6)
	WarmupSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_warmup_success_total",
			Help: "Total number of successfully warmed cache entries",
		},
	)

	WarmupFailureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_warmup_failure_total",
			Help: "Total number of cache entries that exhausted warm-up retries",
		},
	)

	WarmupPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_warmup_pending",
			Help: "Number of warm-up entries currently in flight",
		},
	)

	WarmupAvgDurationMs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_warmup_avg_duration_ms",
			Help: "Average warm-up duration in milliseconds",
		},
	)

	// Go runtime metrics, same shape/names as the teacher's collectRuntimeMetrics.
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_go_mem_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)

	GoMemHeapInuseBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_go_mem_heap_inuse_bytes",
			Help: "Bytes in in-use heap spans",
		},
	)

	GoGCPauseSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratum_go_gc_pause_seconds",
			Help:    "GC pause duration in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	GoGCTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_go_gc_total",
			Help: "Total number of GC runs",
		},
	)
)

// Server exposes the Prometheus registry over HTTP, adapted verbatim in
// shape from the teacher's pkg/metrics.Server (same Start/Stop/runtime
// collector loop), re-themed for the tier/cache domain.
type Server struct {
	config      *config.Config
	logger      *logger.Logger
	server      *http.Server
	stopChan    chan struct{}
	lastNumGC   uint32
}

func New(cfg *config.Config) *Server {
	return &Server{
		config:   cfg,
		logger:   logger.Default().WithComponent("metrics"),
		stopChan: make(chan struct{}),
	}
}

func (s *Server) Start() error {
	if !s.config.Metrics.Enabled {
		s.logger.Info("metrics server disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Metrics.Host, s.config.Metrics.Port)

	mux := http.NewServeMux()
	mux.Handle(s.config.Metrics.Path, promhttp.Handler())

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s.logger.Info("starting metrics server", "address", addr, "path", s.config.Metrics.Path)

	go s.collectRuntimeMetrics()

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) collectRuntimeMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			GoMemAllocBytes.Set(float64(m.Alloc))
			GoMemHeapInuseBytes.Set(float64(m.HeapInuse))

			if m.NumGC > s.lastNumGC {
				for i := s.lastNumGC; i < m.NumGC; i++ {
					pause := m.PauseNs[i%256]
					GoGCPauseSeconds.Observe(float64(pause) / 1e9)
					GoGCTotal.Inc()
				}
				s.lastNumGC = m.NumGC
			}

		case <-s.stopChan:
			return
		}
	}
}

func (s *Server) Stop() error {
	close(s.stopChan)
	if s.server != nil {
		s.logger.Info("stopping metrics server")
		return s.server.Close()
	}
	return nil
}
