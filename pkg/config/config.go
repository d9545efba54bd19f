// Copyright 2025 Takhin Data, Inc.

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full configuration surface for stratumd, per spec.md §6.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Hot          HotConfig          `koanf:"hot"`
	Warm         WarmConfig         `koanf:"warm"`
	Cold         ColdConfig         `koanf:"cold"`
	Backup       BackupConfig       `koanf:"backup"`
	Migration    MigrationConfig    `koanf:"migration"`
	Cache        CacheConfig        `koanf:"cache"`
	Invalidation InvalidationConfig `koanf:"invalidation"`
	Warming      WarmingConfig      `koanf:"warming"`
	Redis        RedisConfig        `koanf:"redis"`
	Postgres     PostgresConfig     `koanf:"postgres"`
	S3           S3Config           `koanf:"s3"`
	Logging      LoggingConfig      `koanf:"logging"`
	Metrics      MetricsConfig      `koanf:"metrics"`
}

// ServerConfig holds the admin HTTP+WebSocket server configuration.
type ServerConfig struct {
	Host string    `koanf:"host"`
	Port int       `koanf:"port"`
	TLS  TLSConfig `koanf:"tls"`
}

// TLSConfig holds TLS/SSL configuration for the admin surface.
type TLSConfig struct {
	Enabled            bool     `koanf:"enabled"`
	CertFile           string   `koanf:"cert.file"`
	KeyFile            string   `koanf:"key.file"`
	CAFile             string   `koanf:"ca.file"`
	ClientAuth         string   `koanf:"client.auth"` // none, request, require
	MinVersion         string   `koanf:"min.version"` // TLS1.2, TLS1.3
	PreferServerCipher bool     `koanf:"prefer.server.cipher"`
	CipherSuites       []string `koanf:"cipher.suites"`
	VerifyClientCert   bool     `koanf:"verify.client.cert"`
}

// HotConfig configures the HOT tier (spec.md §6 Configuration surface).
type HotConfig struct {
	Enabled    bool `koanf:"enabled"`
	TTLSeconds int  `koanf:"ttl.seconds"`
	MaxItems   int  `koanf:"max.items"`
}

// WarmConfig configures the WARM tier.
type WarmConfig struct {
	Enabled       bool `koanf:"enabled"`
	RetentionDays int  `koanf:"retention.days"`
}

// ColdConfig configures the COLD tier.
type ColdConfig struct {
	Enabled            bool   `koanf:"enabled"`
	RetentionDays      int    `koanf:"retention.days"`
	CompressionEnabled bool   `koanf:"compression.enabled"`
	CompressionCodec   string `koanf:"compression.codec"` // gzip, zstd, snappy, lz4
	UseObjectStore     bool   `koanf:"use.object.store"`
}

// BackupConfig configures the BACKUP tier.
type BackupConfig struct {
	Enabled       bool   `koanf:"enabled"`
	RetentionDays int    `koanf:"retention.days"`
	ScheduleCron  string `koanf:"schedule.cron"`
}

// MigrationConfig configures the tier migration scheduler.
type MigrationConfig struct {
	Enabled        bool `koanf:"enabled"`
	IntervalMin    int  `koanf:"interval.minutes"`
	BatchSize      int  `koanf:"batch.size"`
}

// CacheConfig configures the Multi-Level Cache.
type CacheConfig struct {
	L1MaxSize               int     `koanf:"l1.max.size"`
	L1TTL                   int     `koanf:"l1.ttl"`
	L2TTL                   int     `koanf:"l2.ttl"`
	L3TTL                   int     `koanf:"l3.ttl"`
	EvictionPolicy          string  `koanf:"eviction.policy"` // lru, lfu, fifo, priority
	SlidingTTL              bool    `koanf:"sliding.ttl"`
	PredictiveEnabled       bool    `koanf:"predictive.enabled"`
	PredictiveThreshold     float64 `koanf:"predictive.threshold"`
	MaxPredictiveKeys       int     `koanf:"max.predictive.keys"`
	DistributedCoordEnabled bool    `koanf:"distributed.coord.enabled"`
	CoordChannel            string  `koanf:"coord.channel"`
	AnalyticsEnabled        bool    `koanf:"analytics.enabled"`
	AnalyticsRetentionMs    int64   `koanf:"analytics.retention.ms"`
}

// InvalidationConfig configures the Cache Invalidation Manager.
type InvalidationConfig struct {
	DefaultTTL     int    `koanf:"default.ttl"`
	SlidingTTL     bool   `koanf:"sliding.ttl"`
	EventChannel   string `koanf:"event.channel"`
	CascadeDepth   int    `koanf:"cascade.depth"`
	MaxHistorySize int    `koanf:"max.history.size"`
}

// WarmingConfig configures the Cache Warmer.
type WarmingConfig struct {
	Strategy             string  `koanf:"strategy"` // ON_STARTUP, SCHEDULED, PREDICTIVE, MANUAL
	BatchSize            int     `koanf:"batch.size"`
	DelayBetweenBatchesMs int    `koanf:"delay.between.batches.ms"`
	MaxRetries           int     `koanf:"max.retries"`
	RetryDelayMs         int     `koanf:"retry.delay.ms"`
	TimeoutMs            int     `koanf:"timeout.ms"`
	Parallelism          int     `koanf:"parallelism"`
	MaxEntriesPerSecond  float64 `koanf:"max.entries.per.second"`
	PredictiveEnabled    bool    `koanf:"predictive.enabled"`
	PredictiveThreshold  float64 `koanf:"predictive.threshold"`
	AccessPatternWindowMs int64  `koanf:"access.pattern.window.ms"`
	MaxPredictiveKeys    int     `koanf:"max.predictive.keys"`
}

// RedisConfig configures the HOT-tier / L2-cache Redis adapter.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// PostgresConfig configures the WARM-tier structured-store adapter.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// S3Config configures the COLD/BACKUP-tier object-store adapter.
type S3Config struct {
	Region   string `koanf:"region"`
	Bucket   string `koanf:"bucket"`
	Prefix   string `koanf:"prefix"`
	Endpoint string `koanf:"endpoint"`
}

// LoggingConfig holds structured-logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig holds Prometheus metrics-server configuration.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	Path    string `koanf:"path"`
}

// Load loads configuration from an optional YAML file, then layers
// STRATUM_-prefixed environment variables on top, matching the teacher's
// koanf file+env composition in pkg/config/config.go.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		slog.Info("loaded config from file", "path", configPath)
	}

	if err := k.Load(env.Provider("STRATUM_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "STRATUM_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TLS.ClientAuth == "" {
		cfg.Server.TLS.ClientAuth = "none"
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = "TLS1.2"
	}

	cfg.Hot.Enabled = true
	if cfg.Hot.TTLSeconds == 0 {
		cfg.Hot.TTLSeconds = 3600
	}
	if cfg.Hot.MaxItems == 0 {
		cfg.Hot.MaxItems = 100000
	}

	cfg.Warm.Enabled = true
	if cfg.Warm.RetentionDays == 0 {
		cfg.Warm.RetentionDays = 30
	}

	cfg.Cold.Enabled = true
	if cfg.Cold.RetentionDays == 0 {
		cfg.Cold.RetentionDays = 365
	}
	if cfg.Cold.CompressionCodec == "" {
		cfg.Cold.CompressionCodec = "zstd"
	}

	if cfg.Backup.RetentionDays == 0 {
		cfg.Backup.RetentionDays = 2555 // ~7 years
	}
	if cfg.Backup.ScheduleCron == "" {
		cfg.Backup.ScheduleCron = "*/60 * * * *"
	}

	cfg.Migration.Enabled = true
	if cfg.Migration.IntervalMin == 0 {
		cfg.Migration.IntervalMin = 15
	}
	if cfg.Migration.BatchSize == 0 {
		cfg.Migration.BatchSize = 100
	}

	if cfg.Cache.L1MaxSize == 0 {
		cfg.Cache.L1MaxSize = 10000
	}
	if cfg.Cache.L1TTL == 0 {
		cfg.Cache.L1TTL = 300
	}
	if cfg.Cache.L2TTL == 0 {
		cfg.Cache.L2TTL = 3600
	}
	if cfg.Cache.L3TTL == 0 {
		cfg.Cache.L3TTL = 86400
	}
	if cfg.Cache.EvictionPolicy == "" {
		cfg.Cache.EvictionPolicy = "lru"
	}
	if cfg.Cache.PredictiveThreshold == 0 {
		cfg.Cache.PredictiveThreshold = 0.7
	}
	if cfg.Cache.MaxPredictiveKeys == 0 {
		cfg.Cache.MaxPredictiveKeys = 20
	}
	if cfg.Cache.CoordChannel == "" {
		cfg.Cache.CoordChannel = "cache_coordination"
	}
	if cfg.Cache.AnalyticsRetentionMs == 0 {
		cfg.Cache.AnalyticsRetentionMs = int64(24 * time.Hour / time.Millisecond)
	}

	if cfg.Invalidation.DefaultTTL == 0 {
		cfg.Invalidation.DefaultTTL = 300
	}
	if cfg.Invalidation.EventChannel == "" {
		cfg.Invalidation.EventChannel = "cache_invalidation"
	}
	if cfg.Invalidation.CascadeDepth == 0 {
		cfg.Invalidation.CascadeDepth = 5
	}
	if cfg.Invalidation.MaxHistorySize == 0 {
		cfg.Invalidation.MaxHistorySize = 1000
	}

	if cfg.Warming.Strategy == "" {
		cfg.Warming.Strategy = "ON_STARTUP"
	}
	if cfg.Warming.BatchSize == 0 {
		cfg.Warming.BatchSize = 50
	}
	if cfg.Warming.DelayBetweenBatchesMs == 0 {
		cfg.Warming.DelayBetweenBatchesMs = 100
	}
	if cfg.Warming.MaxRetries == 0 {
		cfg.Warming.MaxRetries = 3
	}
	if cfg.Warming.RetryDelayMs == 0 {
		cfg.Warming.RetryDelayMs = 200
	}
	if cfg.Warming.TimeoutMs == 0 {
		cfg.Warming.TimeoutMs = 5000
	}
	if cfg.Warming.Parallelism == 0 {
		cfg.Warming.Parallelism = 5
	}
	if cfg.Warming.PredictiveThreshold == 0 {
		cfg.Warming.PredictiveThreshold = 0.7
	}
	if cfg.Warming.MaxPredictiveKeys == 0 {
		cfg.Warming.MaxPredictiveKeys = 20
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Cache.L1MaxSize <= 0 {
		return fmt.Errorf("invalid cache l1.max.size: %d", cfg.Cache.L1MaxSize)
	}

	validEviction := map[string]bool{"lru": true, "lfu": true, "fifo": true, "priority": true}
	if !validEviction[cfg.Cache.EvictionPolicy] {
		return fmt.Errorf("invalid cache eviction.policy: %s", cfg.Cache.EvictionPolicy)
	}

	validCodecs := map[string]bool{"gzip": true, "zstd": true, "snappy": true, "lz4": true}
	if cfg.Cold.CompressionEnabled && !validCodecs[cfg.Cold.CompressionCodec] {
		return fmt.Errorf("invalid cold.compression.codec: %s", cfg.Cold.CompressionCodec)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	validStrategies := map[string]bool{
		"ON_STARTUP": true, "SCHEDULED": true, "PREDICTIVE": true, "MANUAL": true,
	}
	if !validStrategies[cfg.Warming.Strategy] {
		return fmt.Errorf("invalid warming.strategy: %s", cfg.Warming.Strategy)
	}

	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert and key files are required when TLS is enabled")
		}
	}

	return nil
}
