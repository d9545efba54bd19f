// Copyright 2025 Takhin Data, Inc.

package tier

import (
	"context"
	"time"
)

// KeyValueAdapter is the fast in-memory key lookup adapter consumed for the
// HOT tier. Concrete drivers (e.g. Redis) live in internal/adapters; the
// engine only ever depends on this narrow interface.
type KeyValueAdapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	InfoStats(ctx context.Context) (KeyValueStats, error)
}

// KeyValueStats mirrors the info_stats() contract from the spec.
type KeyValueStats struct {
	KeyspaceHits   int64
	KeyspaceMisses int64
	UsedMemory     int64
	MaxMemory      int64
}

// Publisher is the optional publish primitive a KeyValueAdapter may also
// implement, used for the invalidation channel fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg []byte) error
}

// Row is one durable record in a StructuredStoreAdapter table.
type Row map[string]any

// StructuredStoreAdapter is the durable keyed-row store consumed for WARM
// (and, as a fallback, COLD) tier content plus tier-specific tables. Table
// names are caller-chosen strings so one adapter instance can back every
// logical table enumerated in the persisted schema (tiered_storage_warm,
// tiered_storage_cold, ...).
type StructuredStoreAdapter interface {
	Put(ctx context.Context, table, id string, row Row) error
	Get(ctx context.Context, table, id string) (Row, bool, error)
	Delete(ctx context.Context, table, id string) error
	Query(ctx context.Context, table string, filter func(Row) bool) ([]Row, error)
	Transaction(ctx context.Context, fn func(ctx context.Context, tx StructuredStoreAdapter) error) error
}

// ObjectUploadOptions configures an ObjectStoreAdapter.Upload call.
type ObjectUploadOptions struct {
	ContentType string
	Metadata    map[string]string
	Compress    bool
}

// ObjectUploadResult is returned by a successful upload.
type ObjectUploadResult struct {
	ETag string
}

// ObjectDownloadOptions configures an ObjectStoreAdapter.Download call.
type ObjectDownloadOptions struct {
	Decompress bool
}

// ObjectMetadata is returned by Head.
type ObjectMetadata struct {
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ObjectStoreAdapter is the optional blob store consumed for COLD and BACKUP
// content, with built-in content compression.
type ObjectStoreAdapter interface {
	Upload(ctx context.Context, key string, data []byte, opts ObjectUploadOptions) (ObjectUploadResult, error)
	Download(ctx context.Context, key string, opts ObjectDownloadOptions) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, max int) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Head(ctx context.Context, key string) (ObjectMetadata, error)
}
