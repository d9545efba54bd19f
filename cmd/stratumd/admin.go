// Copyright 2025 Takhin Data, Inc.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takhin-data/stratum/internal/cache"
	"github.com/takhin-data/stratum/internal/invalidation"
	"github.com/takhin-data/stratum/internal/retention"
	"github.com/takhin-data/stratum/internal/tier"
	"github.com/takhin-data/stratum/internal/warmer"
	"github.com/takhin-data/stratum/pkg/config"
	"github.com/takhin-data/stratum/pkg/health"
	"github.com/takhin-data/stratum/pkg/logger"
	"github.com/takhin-data/stratum/pkg/metrics"
)

// newAdminServer builds the chi-routed admin API described in spec.md §6:
// stats, forced migration/retention sweeps, cache probes, and a WebSocket
// invalidation event stream, grounded on the teacher's pkg/console/server.go
// route layout (there exposing broker/topic/consumer-group admin routes
// over the same chi+cors+gorilla/websocket stack).
func newAdminServer(
	cfg *config.Config,
	log *logger.Logger,
	engine *tier.Engine,
	retentionEngine *retention.Engine,
	mlc *cache.MultiLevelCache,
	invalidationMgr *invalidation.Manager,
	hub *invalidation.Hub,
	cacheWarmer *warmer.Warmer,
	healthChecker *health.Checker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(newCORSMiddleware())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		h := healthChecker.Check()
		status := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ready := healthChecker.ReadinessCheck()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]bool{"ready": ready})
	})
	r.Get("/health/live", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"alive": healthChecker.LivenessCheck()})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"tier_engine":   engine.GetStatistics(),
			"cache":         mlc.Analytics(10),
			"cache_size":    mlc.Size(),
			"warmer":        cacheWarmer.Stats(),
			"invalidations": invalidationMgr.History(),
		})
	})

	r.Post("/migrate", func(w http.ResponseWriter, req *http.Request) {
		result := engine.PerformMigration(req.Context())
		metrics.RecordMigration(result)
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/retention/enforce", func(w http.ResponseWriter, req *http.Request) {
		deleted, err := retentionEngine.EnforceAll(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	})

	r.Get("/cache/{key}", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "key")
		value, found, err := mlc.Get(req.Context(), key, func(context.Context) ([]byte, error) {
			return nil, errCacheMiss
		})
		if err != nil && !errors.Is(err, errCacheMiss) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": string(value)})
	})

	r.Delete("/cache/{key}", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "key")
		if err := mlc.Delete(req.Context(), key); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		invalidationMgr.Invalidate(key, "admin_delete")
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	})

	r.Post("/cache/invalidate/tag/{tag}", func(w http.ResponseWriter, req *http.Request) {
		tag := chi.URLParam(req, "tag")
		n, err := mlc.InvalidateByTag(req.Context(), tag)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		invalidationMgr.InvalidateByTag(tag)
		writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
	})

	r.Get("/ws/invalidations", hub.ServeWS)

	return r
}

// errCacheMiss is returned by the /cache/{key} probe's no-op fetch function
// so a miss can be distinguished from a genuine fetch failure; the route
// never populates the cache on miss, it only inspects existing state.
var errCacheMiss = errors.New("cache miss")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
