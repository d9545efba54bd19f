// Copyright 2025 Takhin Data, Inc.

package tier

import (
	"context"
	"fmt"
	"time"
)

// tierStore is the minimal content-storage surface the engine needs for one
// physical tier, independent of which adapter backs it.
type tierStore interface {
	put(ctx context.Context, key string, value []byte, ttl *time.Duration) error
	get(ctx context.Context, key string) ([]byte, bool, error)
	delete(ctx context.Context, key string) error
}

// hotKeyTTL returns the per-data-type default TTL for keys stored in the HOT
// key-value adapter, per the "Key conventions for HOT tier" table in §6.
func hotKeyTTL(dt DataType) time.Duration {
	switch dt {
	case DataTypeUserProfile:
		return 3600 * time.Second
	case DataTypeConversation:
		return 86400 * time.Second
	case DataTypeMessage:
		return 43200 * time.Second
	case DataTypeBotState:
		return 1800 * time.Second
	case DataTypeConfiguration:
		return 3600 * time.Second
	case DataTypeAnalytics:
		return 7200 * time.Second
	case DataTypeCodeModification:
		return 86400 * time.Second
	case DataTypeEmbedding:
		return 43200 * time.Second
	default:
		return 3600 * time.Second
	}
}

func hotKey(key string) string { return "tier:hot:" + key }

// hotStore adapts a KeyValueAdapter to tierStore for the HOT tier.
type hotStore struct {
	kv      KeyValueAdapter
	ttlFunc func() time.Duration
}

func newHotStore(kv KeyValueAdapter, ttl time.Duration) *hotStore {
	return &hotStore{kv: kv, ttlFunc: func() time.Duration { return ttl }}
}

func (s *hotStore) put(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	d := s.ttlFunc()
	if ttl != nil {
		d = *ttl
	}
	if err := s.kv.Set(ctx, hotKey(key), value, d); err != nil {
		return NewError(KindAdapterUnavailable, "store", key, err)
	}
	return nil
}

func (s *hotStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := s.kv.Get(ctx, hotKey(key))
	if err != nil {
		return nil, false, NewError(KindAdapterUnavailable, "retrieve", key, err)
	}
	return v, ok, nil
}

func (s *hotStore) delete(ctx context.Context, key string) error {
	if _, err := s.kv.Del(ctx, hotKey(key)); err != nil {
		return NewError(KindAdapterUnavailable, "delete", key, err)
	}
	return nil
}

// rowStore adapts a StructuredStoreAdapter table to tierStore, used for WARM
// content and, when no object store is configured, COLD/BACKUP as well.
type rowStore struct {
	ss    StructuredStoreAdapter
	table string
}

func newRowStore(ss StructuredStoreAdapter, table string) *rowStore {
	return &rowStore{ss: ss, table: table}
}

func (s *rowStore) put(ctx context.Context, key string, value []byte, _ *time.Duration) error {
	if err := s.ss.Put(ctx, s.table, key, Row{"value": value}); err != nil {
		return NewError(KindAdapterUnavailable, "store", key, err)
	}
	return nil
}

func (s *rowStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	row, ok, err := s.ss.Get(ctx, s.table, key)
	if err != nil {
		return nil, false, NewError(KindAdapterUnavailable, "retrieve", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	v, ok := row["value"].([]byte)
	if !ok {
		return nil, false, NewError(KindSerialization, "retrieve", key, fmt.Errorf("row %q missing value column", s.table))
	}
	return v, true, nil
}

func (s *rowStore) delete(ctx context.Context, key string) error {
	if err := s.ss.Delete(ctx, s.table, key); err != nil {
		return NewError(KindAdapterUnavailable, "delete", key, err)
	}
	return nil
}

// objectStore adapts an ObjectStoreAdapter to tierStore, used for COLD
// (with optional compression) and BACKUP content.
type objectStore struct {
	obj      ObjectStoreAdapter
	compress bool
}

func newObjectStore(obj ObjectStoreAdapter, compress bool) *objectStore {
	return &objectStore{obj: obj, compress: compress}
}

func (s *objectStore) put(ctx context.Context, key string, value []byte, _ *time.Duration) error {
	_, err := s.obj.Upload(ctx, key, value, ObjectUploadOptions{Compress: s.compress})
	if err != nil {
		return NewError(KindAdapterUnavailable, "store", key, err)
	}
	return nil
}

func (s *objectStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	exists, err := s.obj.Exists(ctx, key)
	if err != nil {
		return nil, false, NewError(KindAdapterUnavailable, "retrieve", key, err)
	}
	if !exists {
		return nil, false, nil
	}
	v, err := s.obj.Download(ctx, key, ObjectDownloadOptions{Decompress: s.compress})
	if err != nil {
		return nil, false, NewError(KindAdapterUnavailable, "retrieve", key, err)
	}
	return v, true, nil
}

func (s *objectStore) delete(ctx context.Context, key string) error {
	if err := s.obj.Delete(ctx, key); err != nil {
		return NewError(KindAdapterUnavailable, "delete", key, err)
	}
	return nil
}
