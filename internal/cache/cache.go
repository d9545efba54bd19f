// Copyright 2025 Takhin Data, Inc.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/takhin-data/stratum/internal/cache/eviction"
	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/lifecycle"
	"github.com/takhin-data/stratum/internal/pubsub"
	"github.com/takhin-data/stratum/pkg/logger"
)

// MultiLevelCache is the Multi-Level Cache described in §4.4.
type MultiLevelCache struct {
	mu   sync.RWMutex
	l1   map[string]*entry
	tagToKeys map[string]map[string]struct{}
	keyToTags map[string]map[string]struct{}

	policy eviction.Policy

	l2 L2Adapter
	l3 L3Adapter
	pub Publisher

	cfg   Config
	clock clock.Clock
	log   *logger.Logger

	tracker *lifecycle.Tracker

	analytics *analytics

	invalidations *pubsub.Bus[InvalidationEvent]

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func New(clk clock.Clock, log *logger.Logger, cfg Config, l2 L2Adapter, l3 L3Adapter, pub Publisher) *MultiLevelCache {
	return &MultiLevelCache{
		l1:        make(map[string]*entry),
		tagToKeys: make(map[string]map[string]struct{}),
		keyToTags: make(map[string]map[string]struct{}),
		policy:    eviction.New(cfg.EvictionPolicy, nil),
		l2:        l2,
		l3:        l3,
		pub:       pub,
		cfg:       cfg,
		clock:     clk,
		log:       log.WithComponent("cache"),
		tracker:   lifecycle.New(clk, lifecycle.DefaultConfig()),
		analytics: newAnalytics(),
		invalidations: pubsub.New[InvalidationEvent](),
		stopCh:    make(chan struct{}),
	}
}

// Invalidations exposes the local invalidation event bus for subscribers
// (e.g. the admin WebSocket hub fanning events out to peers).
func (c *MultiLevelCache) Invalidations() *pubsub.Bus[InvalidationEvent] { return c.invalidations }

// Get implements the read path from §4.4: L1 -> L2 -> L3 -> fetch, with
// write-through promotion on every hit below L1.
func (c *MultiLevelCache) Get(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	start := c.clock.Now()
	defer func() { c.analytics.recordAccess(key, c.clock.Now().Sub(start)) }()

	if v, ok := c.getL1(key); ok {
		c.analytics.recordHit(L1)
		return v, true, nil
	}
	c.analytics.recordMiss(L1)

	if c.l2 != nil {
		v, ok, err := c.l2.Get(ctx, key)
		if err == nil && ok {
			c.analytics.recordHit(L2)
			c.putL1(key, v, c.cfg.L1TTL, nil, 0)
			return v, true, nil
		}
		c.analytics.recordMiss(L2)
	}

	if c.l3 != nil {
		v, ok, err := c.l3.Get(ctx, key)
		if err == nil && ok {
			c.analytics.recordHit(L3)
			if c.l2 != nil {
				_ = c.l2.Set(ctx, key, v, c.cfg.L2TTL)
			}
			c.putL1(key, v, c.cfg.L1TTL, nil, 0)
			return v, true, nil
		}
		c.analytics.recordMiss(L3)
	}

	if fetch == nil {
		return nil, false, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, key, v, SetOptions{}); err != nil {
		return v, true, err
	}
	return v, true, nil
}

func (c *MultiLevelCache) getL1(key string) ([]byte, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.l1[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		c.removeL1Locked(key)
		return nil, false
	}

	e.AccessedAt = now
	e.AccessCount++
	if c.cfg.SlidingTTL && e.TTL > 0 {
		// Sliding TTL: reset created_at and re-arm, never beyond 2x original.
		maxExtension := e.CreatedAt.Add(2 * e.TTL)
		newCreated := now
		if newCreated.Add(e.TTL).After(maxExtension) {
			newCreated = maxExtension.Add(-e.TTL)
		}
		e.CreatedAt = newCreated
	}
	c.policy.Touch(eviction.Entry{
		Key: key, CreatedAt: e.CreatedAt, AccessedAt: e.AccessedAt,
		AccessCount: e.AccessCount, Priority: e.Priority,
	})
	c.tracker.RecordAccess(key, 0)

	return e.Value, true
}

// putL1 write-throughs into L1, evicting one entry per policy if inserting
// would exceed L1MaxSize.
func (c *MultiLevelCache) putL1(key string, value []byte, ttl time.Duration, tags []string, priority int) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.l1[key]; !exists && c.cfg.L1MaxSize > 0 && len(c.l1) >= c.cfg.L1MaxSize {
		if victim, ok := c.policy.Evict(); ok {
			c.removeL1Locked(victim)
		}
	}

	e := &entry{
		Key: key, Value: value, CreatedAt: now, AccessedAt: now,
		AccessCount: 1, TTL: ttl, Priority: priority,
		Tags: make(map[string]struct{}, len(tags)),
	}
	if existing, ok := c.l1[key]; ok {
		e.AccessCount = existing.AccessCount + 1
		e.CreatedAt = existing.CreatedAt
	}
	for _, t := range tags {
		e.Tags[t] = struct{}{}
	}
	c.l1[key] = e
	c.policy.Touch(eviction.Entry{Key: key, CreatedAt: e.CreatedAt, AccessedAt: e.AccessedAt, AccessCount: e.AccessCount, Priority: e.Priority})
	c.syncTagsLocked(key, tags)
	c.tracker.RecordAccess(key, 0)
}

// removeL1Locked removes key from L1, the policy, and the tag index. Caller
// must hold c.mu.
func (c *MultiLevelCache) removeL1Locked(key string) {
	delete(c.l1, key)
	c.policy.Remove(key)
	for tag := range c.keyToTags[key] {
		if keys, ok := c.tagToKeys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tagToKeys, tag)
			}
		}
	}
	delete(c.keyToTags, key)
}

// syncTagsLocked rewrites key's tag membership symmetrically. Caller must
// hold c.mu.
func (c *MultiLevelCache) syncTagsLocked(key string, tags []string) {
	for tag := range c.keyToTags[key] {
		if keys, ok := c.tagToKeys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tagToKeys, tag)
			}
		}
	}
	delete(c.keyToTags, key)

	if len(tags) == 0 {
		return
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
		if c.tagToKeys[tag] == nil {
			c.tagToKeys[tag] = make(map[string]struct{})
		}
		c.tagToKeys[tag][key] = struct{}{}
	}
	c.keyToTags[key] = set
}

// Set writes to each requested layer (default all three). L2 and L3 writes
// are issued concurrently; the call completes when all targeted writes ack.
func (c *MultiLevelCache) Set(ctx context.Context, key string, value []byte, opts SetOptions) error {
	layers := opts.Layers
	if len(layers) == 0 {
		layers = allLayers()
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	writeL1 := false
	for _, l := range layers {
		switch l {
		case L1:
			writeL1 = true
		case L2:
			if c.l2 != nil {
				wg.Add(1)
				ttl := c.cfg.L2TTL
				go func() {
					defer wg.Done()
					if err := c.l2.Set(ctx, key, value, ttl); err != nil {
						errCh <- fmt.Errorf("l2 set %q: %w", key, err)
					}
				}()
			}
		case L3:
			if c.l3 != nil {
				wg.Add(1)
				ttl := c.cfg.L3TTL
				go func() {
					defer wg.Done()
					if err := c.l3.Set(ctx, key, value, ttl); err != nil {
						errCh <- fmt.Errorf("l3 set %q: %w", key, err)
					}
				}()
			}
		}
	}

	if writeL1 {
		ttl := c.cfg.L1TTL
		if opts.TTL != nil {
			ttl = *opts.TTL
		}
		c.putL1(key, value, ttl, opts.Tags, opts.Priority)
	}

	wg.Wait()
	close(errCh)
	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}

	c.broadcast(ctx, InvalidationEvent{Type: "set", Key: key, At: c.clock.Now()})
	return firstErr
}

// Delete removes key from L1, L2, L3, and broadcasts invalidation.
func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.removeL1Locked(key)
	c.mu.Unlock()

	var firstErr error
	if c.l2 != nil {
		if err := c.l2.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.l3 != nil {
		if err := c.l3.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.broadcast(ctx, InvalidationEvent{Type: "delete", Key: key, At: c.clock.Now()})
	return firstErr
}

// InvalidateByTag sweeps L1 entries carrying tag and removes them, then
// delegates to L2/L3. The returned count is the number of distinct keys
// removed from L1; keys held only in L2/L3 are deleted there but are not
// counted.
func (c *MultiLevelCache) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.tagToKeys[tag]))
	for k := range c.tagToKeys[tag] {
		keys = append(keys, k)
	}
	for _, k := range keys {
		c.removeL1Locked(k)
	}
	c.mu.Unlock()

	unique := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		unique[k] = struct{}{}
	}

	var firstErr error
	if c.l2 != nil {
		if _, err := c.l2.DeleteByTag(ctx, tag); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.l3 != nil {
		if _, err := c.l3.DeleteByTag(ctx, tag); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.broadcast(ctx, InvalidationEvent{Type: "invalidate_tag", Tag: tag, At: c.clock.Now()})
	return len(unique), firstErr
}

func (c *MultiLevelCache) broadcast(ctx context.Context, ev InvalidationEvent) {
	c.invalidations.Publish(ev)
	if c.pub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.pub.Publish(ctx, c.cfg.CoordChannel, payload); err != nil {
		c.log.Warn("distributed invalidation publish failed", "error", err)
	}
}

// Size returns the current L1 entry count.
func (c *MultiLevelCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.l1)
}

// Keys returns a snapshot of L1 keys, mostly for tests.
func (c *MultiLevelCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.l1))
	for k := range c.l1 {
		out = append(out, k)
	}
	return out
}

// SwitchEvictionPolicy hot-swaps the L1 eviction policy, transferring
// existing entries into the new policy's structures.
func (c *MultiLevelCache) SwitchEvictionPolicy(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]eviction.Entry, 0, len(c.l1))
	for _, e := range c.l1 {
		entries = append(entries, eviction.Entry{
			Key: e.Key, CreatedAt: e.CreatedAt, AccessedAt: e.AccessedAt,
			AccessCount: e.AccessCount, Priority: e.Priority,
		})
	}
	c.policy = eviction.New(name, nil)
	c.policy.Reset(entries)
}

// Close closes the stop channel and waits on the cache's WaitGroup; the
// cache itself starts no background goroutine.
func (c *MultiLevelCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}
