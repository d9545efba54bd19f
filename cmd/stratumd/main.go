// Copyright 2025 Takhin Data, Inc.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takhin-data/stratum/internal/adapters"
	"github.com/takhin-data/stratum/internal/cache"
	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/invalidation"
	"github.com/takhin-data/stratum/internal/lifecycle"
	"github.com/takhin-data/stratum/internal/retention"
	"github.com/takhin-data/stratum/internal/tier"
	"github.com/takhin-data/stratum/internal/warmer"
	"github.com/takhin-data/stratum/pkg/config"
	"github.com/takhin-data/stratum/pkg/health"
	"github.com/takhin-data/stratum/pkg/logger"
	"github.com/takhin-data/stratum/pkg/metrics"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/stratum.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stratumd version %s (commit: %s, built: %s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger.SetDefault(log)

	log.Info("starting stratumd", "version", version, "commit", commit, "build_time", buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewReal()

	// --- External adapters (degrade gracefully: a nil adapter means its
	// tier/layer is transparently skipped, per spec.md §4.1) ---
	var redisKV *adapters.RedisKV
	var redisCache *adapters.RedisCache
	if cfg.Redis.Addr != "" {
		redisKV, err = adapters.NewRedisKV(adapters.RedisConfig{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		redisCache = adapters.NewRedisCache(redisKV.Client())
		log.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	var postgresStore *adapters.PostgresStore
	var postgresCache *adapters.PostgresCacheStore
	var pgPool *pgxpool.Pool
	if cfg.Postgres.DSN != "" {
		pgPool, err = pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal("failed to connect to postgres", "error", err)
		}
		postgresStore = adapters.NewPostgresStore(pgPool)
		postgresCache = adapters.NewPostgresCacheStore(pgPool, "cache_l3")
		log.Info("connected to postgres")
	}

	var compressor *adapters.Compressor
	if cfg.Cold.CompressionEnabled {
		compressor, err = adapters.NewCompressor(adapters.Codec(cfg.Cold.CompressionCodec))
		if err != nil {
			log.Fatal("failed to build compressor", "error", err)
		}
	}

	var s3Store *adapters.S3Store
	if cfg.S3.Bucket != "" {
		s3Store, err = adapters.NewS3Store(ctx, adapters.S3Config{
			Region: cfg.S3.Region, Bucket: cfg.S3.Bucket, Prefix: cfg.S3.Prefix, Endpoint: cfg.S3.Endpoint,
		}, compressor)
		if err != nil {
			log.Fatal("failed to build S3 object store", "error", err)
		}
		log.Info("connected to S3", "bucket", cfg.S3.Bucket)
	}

	// --- Tiered Storage Engine ---
	tracker := lifecycle.New(clk, lifecycle.DefaultConfig())

	tierAdapters := tier.Adapters{}
	if cfg.Hot.Enabled && redisKV != nil {
		tierAdapters.Hot = redisKV
	}
	if cfg.Warm.Enabled && postgresStore != nil {
		tierAdapters.Warm = postgresStore
	}
	if cfg.Cold.Enabled {
		if cfg.Cold.UseObjectStore && s3Store != nil {
			tierAdapters.ColdObj = s3Store
		} else if postgresStore != nil {
			tierAdapters.Cold = postgresStore
		}
	}
	if cfg.Backup.Enabled && s3Store != nil {
		tierAdapters.Backup = s3Store
	}

	engine := tier.New(clk, tracker, log, tier.Config{
		MigrationInterval: time.Duration(cfg.Migration.IntervalMin) * time.Minute,
		BatchSize:         cfg.Migration.BatchSize,
		ColdCompression:   cfg.Cold.CompressionEnabled,
	}, tierAdapters)

	// --- Retention Policy Engine ---
	retentionEngine := retention.New(clk, engine, log)
	engine.SetRetentionEnforcer(retentionEngine)

	if cfg.Migration.Enabled {
		engine.StartScheduler(ctx)
		log.Info("started tier migration scheduler", "interval_min", cfg.Migration.IntervalMin)
	}

	// --- Multi-Level Cache ---
	var l2 cache.L2Adapter
	var l3 cache.L3Adapter
	var cachePub cache.Publisher
	if redisCache != nil {
		l2 = redisCache
	}
	if postgresCache != nil {
		l3 = postgresCache
	}
	if redisKV != nil {
		cachePub = redisKV
	}

	mlc := cache.New(clk, log, cache.Config{
		L1MaxSize:               cfg.Cache.L1MaxSize,
		L1TTL:                   time.Duration(cfg.Cache.L1TTL) * time.Second,
		L2TTL:                   time.Duration(cfg.Cache.L2TTL) * time.Second,
		L3TTL:                   time.Duration(cfg.Cache.L3TTL) * time.Second,
		EvictionPolicy:          cfg.Cache.EvictionPolicy,
		SlidingTTL:              cfg.Cache.SlidingTTL,
		PredictiveEnabled:       cfg.Cache.PredictiveEnabled,
		PredictiveThreshold:     cfg.Cache.PredictiveThreshold,
		MaxPredictiveKeys:       cfg.Cache.MaxPredictiveKeys,
		DistributedCoordEnabled: cfg.Cache.DistributedCoordEnabled,
		CoordChannel:            cfg.Cache.CoordChannel,
		AnalyticsEnabled:        cfg.Cache.AnalyticsEnabled,
		AnalyticsRetention:      time.Duration(cfg.Cache.AnalyticsRetentionMs) * time.Millisecond,
	}, l2, l3, cachePub)

	// --- Cache Invalidation Manager ---
	var patternAdapter invalidation.PatternAdapter
	var invalPub invalidation.Publisher
	if redisKV != nil {
		patternAdapter = adapters.NewRedisPatternAdapter(ctx, redisKV)
		invalPub = publisherNoCtx{redisKV}
	}

	invalidationMgr := invalidation.New(clk, log, invalidation.Config{
		DefaultTTL:     time.Duration(cfg.Invalidation.DefaultTTL) * time.Second,
		SlidingTTL:     cfg.Invalidation.SlidingTTL,
		EventChannel:   cfg.Invalidation.EventChannel,
		CascadeDepth:   cfg.Invalidation.CascadeDepth,
		MaxHistorySize: cfg.Invalidation.MaxHistorySize,
	}, cacheRemover{mlc}, invalPub, patternAdapter)

	invalidationHub := invalidation.NewHub(invalidationMgr, log)
	go invalidationHub.Run()

	// --- Cache Warmer ---
	cacheWarmer := warmer.New(clk, log, warmer.Config{
		BatchSize:           cfg.Warming.BatchSize,
		Parallelism:         cfg.Warming.Parallelism,
		DelayBetweenBatches: time.Duration(cfg.Warming.DelayBetweenBatchesMs) * time.Millisecond,
		MaxRetries:          cfg.Warming.MaxRetries,
		RetryDelay:          time.Duration(cfg.Warming.RetryDelayMs) * time.Millisecond,
		Timeout:             time.Duration(cfg.Warming.TimeoutMs) * time.Millisecond,
		PredictiveThreshold: cfg.Warming.PredictiveThreshold,
		MaxPredictiveKeys:   cfg.Warming.MaxPredictiveKeys,
		MaxEntriesPerSecond: cfg.Warming.MaxEntriesPerSecond,
	}, cacheSetter{mlc}, cachePredictor{mlc})

	// --- Metrics + periodic collector ---
	metricsServer := metrics.New(cfg)
	if err := metricsServer.Start(); err != nil {
		log.Fatal("failed to start metrics server", "error", err)
	}
	collector := metrics.NewCollector(engine, mlc, cacheWarmer, 15*time.Second)
	collector.Start()

	// --- Health checker ---
	healthChecker := health.NewChecker(version, engine)

	// --- Admin HTTP + WebSocket server ---
	admin := newAdminServer(cfg, log, engine, retentionEngine, mlc, invalidationMgr, invalidationHub, cacheWarmer, healthChecker)
	adminAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	adminSrv := &http.Server{Addr: adminAddr, Handler: admin}
	go func() {
		log.Info("starting admin server", "address", adminAddr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server error", "error", err)
		}
	}()

	log.Info("stratumd started successfully", "port", cfg.Server.Port, "metrics_port", cfg.Metrics.Port)

	<-ctx.Done()
	log.Info("shutting down stratumd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop admin server", "error", err)
	}
	invalidationHub.Stop()
	cacheWarmer.Close()
	invalidationMgr.Close()
	collector.Stop()
	if err := engine.Close(); err != nil {
		log.Error("failed to close tier engine", "error", err)
	}
	if err := mlc.Close(); err != nil {
		log.Error("failed to close cache", "error", err)
	}
	if redisKV != nil {
		if err := redisKV.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}
	if pgPool != nil {
		pgPool.Close()
	}
	if err := metricsServer.Stop(); err != nil {
		log.Error("failed to stop metrics server", "error", err)
	}

	log.Info("stratumd stopped")
}

func newCORSMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
	})
}
