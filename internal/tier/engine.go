// Copyright 2025 Takhin Data, Inc.

package tier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/lifecycle"
	"github.com/takhin-data/stratum/pkg/logger"
)

// Tracker is the narrow view of the Access-Pattern Tracker the engine needs.
type Tracker interface {
	Track(key string)
	RecordAccess(key string, tr lifecycle.Tier)
	Remove(key string)
	AccessCount(key string) int64
	FirstAccessAt(key string) (time.Time, bool)
	LastAccessAt(key string) (time.Time, bool)
	MigrationCandidates(limit int) []lifecycle.Candidate
}

// RetentionEnforcer is the hook the engine calls for enforce_retention_policies.
// retention.Engine satisfies this without tier importing the retention package.
type RetentionEnforcer interface {
	EnforceAll(ctx context.Context) (int, error)
}

// Config bounds the engine's scheduler and migration batch behaviour.
type Config struct {
	MigrationInterval time.Duration
	BatchSize         int
	ColdCompression   bool
}

func DefaultConfig() Config {
	return Config{
		MigrationInterval: 5 * time.Minute,
		BatchSize:         100,
		ColdCompression:   true,
	}
}

// Engine is the Tiered Storage Engine: the single entry point for tiered
// reads/writes, orchestrating placement, promotion, demotion, and retention.
type Engine struct {
	mu       sync.RWMutex
	metadata map[string]*MetadataEntry

	stores map[Tier]tierStore

	tracker   Tracker
	retention RetentionEnforcer
	clock     clock.Clock
	log       *logger.Logger
	cfg       Config

	migrationLog []MigrationLogEntry
	migrationSeq uint64

	inFlight map[string]struct{}
	inFlMu   sync.Mutex

	promotions  int64
	demotions   int64
	migrated    int64
	migFailed   int64

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// Adapters bundles the optional per-tier backing stores. A nil adapter means
// that tier is transparently skipped (degrades gracefully, per §4.1 failure
// semantics).
type Adapters struct {
	Hot    KeyValueAdapter
	Warm   StructuredStoreAdapter
	Cold   StructuredStoreAdapter
	ColdObj ObjectStoreAdapter
	Backup ObjectStoreAdapter
}

func New(clk clock.Clock, tracker Tracker, log *logger.Logger, cfg Config, ad Adapters) *Engine {
	stores := make(map[Tier]tierStore)
	if ad.Hot != nil {
		stores[Hot] = newHotStore(ad.Hot, hotKeyTTL(""))
	}
	if ad.Warm != nil {
		stores[Warm] = newRowStore(ad.Warm, "tiered_storage_warm")
	}
	if ad.ColdObj != nil {
		stores[Cold] = newObjectStore(ad.ColdObj, cfg.ColdCompression)
	} else if ad.Cold != nil {
		stores[Cold] = newRowStore(ad.Cold, "tiered_storage_cold")
	}
	if ad.Backup != nil {
		stores[Backup] = newObjectStore(ad.Backup, false)
	} else if ad.Cold != nil {
		stores[Backup] = newRowStore(ad.Cold, "tiered_storage_backup")
	}

	return &Engine{
		metadata: make(map[string]*MetadataEntry),
		stores:   stores,
		tracker:  tracker,
		clock:    clk,
		log:      log.WithComponent("tier"),
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// SetRetentionEnforcer wires the Retention Policy Engine in after
// construction, avoiding an import cycle between internal/tier and
// internal/retention.
func (e *Engine) SetRetentionEnforcer(r RetentionEnforcer) { e.retention = r }

// Store persists value to the chosen tier and updates metadata; returns
// after the adapter acknowledges.
func (e *Engine) Store(ctx context.Context, key string, value []byte, dataType DataType, opts StoreOptions) error {
	now := e.clock.Now()

	targetTier := InitialTier(dataType)
	if opts.Tier != nil {
		targetTier = *opts.Tier
	}

	store, ok := e.stores[targetTier]
	if !ok {
		return NewError(KindAdapterUnavailable, "store", key, fmt.Errorf("no adapter configured for tier %s", targetTier))
	}

	ttl := opts.TTL
	if ttl == nil && targetTier == Hot {
		d := hotKeyTTL(dataType)
		ttl = &d
	}
	if err := store.put(ctx, key, value, ttl); err != nil {
		return err
	}

	tags := make(map[string]struct{}, len(opts.Tags))
	for _, t := range opts.Tags {
		tags[t] = struct{}{}
	}

	e.mu.Lock()
	existing, existed := e.metadata[key]
	entry := &MetadataEntry{
		Key: key, DataType: dataType, Tier: targetTier,
		CreatedAt: now, LastAccessedAt: now, AccessCount: 1,
		SizeBytes: int64(len(value)), Tags: tags, ExpiresAt: opts.ExpiresAt,
		UpdatedAt: now,
	}
	if existed {
		entry.CreatedAt = existing.CreatedAt
		entry.AccessCount = existing.AccessCount
	}
	e.metadata[key] = entry
	e.mu.Unlock()

	if !existed {
		e.tracker.Track(key)
	}
	return nil
}

// Retrieve probes HOT, WARM, COLD, BACKUP in order and returns the first
// hit. Adapter read failures are treated as a miss on that tier; the
// aggregated error is returned only if every tier fails with an error and
// none hit.
func (e *Engine) Retrieve(ctx context.Context, key string) ([]byte, bool, error) {
	e.mu.RLock()
	meta, ok := e.metadata[key]
	e.mu.RUnlock()

	order := []Tier{Hot, Warm, Cold, Backup}
	if ok {
		order = tierProbeOrderFrom(meta.Tier)
	}

	var errs []error
	probed := 0
	for _, t := range order {
		store, exists := e.stores[t]
		if !exists {
			continue
		}
		probed++
		value, hit, err := store.get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !hit {
			continue
		}

		e.recordHit(key, t)
		return value, true, nil
	}

	if probed > 0 && len(errs) == probed {
		return nil, false, errors.Join(errs...)
	}
	return nil, false, nil
}

// tierProbeOrderFrom starts probing at the metadata's recorded tier (the
// expected location) then falls through the remaining tiers in HOT-to-BACKUP
// order, so a migration that left a transient duplicate is still found.
func tierProbeOrderFrom(t Tier) []Tier {
	all := []Tier{Hot, Warm, Cold, Backup}
	ordered := make([]Tier, 0, 4)
	ordered = append(ordered, t)
	for _, x := range all {
		if x != t {
			ordered = append(ordered, x)
		}
	}
	return ordered
}

func (e *Engine) recordHit(key string, foundAt Tier) {
	now := e.clock.Now()

	e.tracker.RecordAccess(key, int(foundAt))

	e.mu.Lock()
	meta, ok := e.metadata[key]
	if ok {
		meta.LastAccessedAt = now
		meta.AccessCount++
		meta.UpdatedAt = now
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	ageDays := AgeDays(now, meta.CreatedAt)
	freq := Frequency(meta.AccessCount, ageDays)
	if target, should := ShouldPromote(freq, foundAt); should {
		go e.promoteAsync(key, foundAt, target)
	}
}

// promoteAsync performs a best-effort, non-blocking promotion. A failure
// here must never fail the read that triggered it.
func (e *Engine) promoteAsync(key string, from, to Tier) {
	ctx := context.Background()
	if !e.claimInFlight(key) {
		return
	}
	defer e.releaseInFlight(key)

	if err := e.migrateOne(ctx, key, from, to, "promotion"); err != nil {
		e.log.Warn("promotion failed", "key", key, "from", from, "to", to, "error", err)
		return
	}
	e.promotions++
}

func (e *Engine) claimInFlight(key string) bool {
	e.inFlMu.Lock()
	defer e.inFlMu.Unlock()
	if _, busy := e.inFlight[key]; busy {
		return false
	}
	e.inFlight[key] = struct{}{}
	return true
}

func (e *Engine) releaseInFlight(key string) {
	e.inFlMu.Lock()
	defer e.inFlMu.Unlock()
	delete(e.inFlight, key)
}

// Delete removes key from every tier (idempotent per tier) and from
// metadata and tracker state.
func (e *Engine) Delete(ctx context.Context, key string) error {
	var firstErr error
	for _, store := range e.stores {
		if err := store.delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.mu.Lock()
	delete(e.metadata, key)
	e.mu.Unlock()
	e.tracker.Remove(key)

	return firstErr
}

// migrateOne implements the five-step migration procedure from §4.1.
func (e *Engine) migrateOne(ctx context.Context, key string, from, to Tier, reason string) error {
	fromStore, ok := e.stores[from]
	if !ok {
		return NewError(KindAdapterUnavailable, "migrate", key, fmt.Errorf("no adapter for tier %s", from))
	}
	toStore, ok := e.stores[to]
	if !ok {
		return NewError(KindAdapterUnavailable, "migrate", key, fmt.Errorf("no adapter for tier %s", to))
	}

	value, found, err := fromStore.get(ctx, key)
	if err != nil {
		e.appendMigrationLog(key, from, to, reason, false, err.Error())
		return err
	}
	if !found {
		e.appendMigrationLog(key, from, to, reason, false, "not_found")
		return NewError(KindNotFound, "migrate", key, fmt.Errorf("not found in source tier"))
	}

	if err := toStore.put(ctx, key, value, nil); err != nil {
		e.appendMigrationLog(key, from, to, reason, false, err.Error())
		return err
	}

	// Step 4 (metadata.tier update) must only happen after step 2 (write)
	// succeeds. A failure in step 3 (delete) leaves a transient duplicate;
	// the probe order in Retrieve and the reconciliation sweep handle it.
	delErr := fromStore.delete(ctx, key)

	now := e.clock.Now()
	e.mu.Lock()
	if meta, ok := e.metadata[key]; ok {
		meta.Tier = to
		meta.UpdatedAt = now
	}
	e.mu.Unlock()

	e.appendMigrationLog(key, from, to, reason, true, "")

	if delErr != nil {
		e.log.Warn("migration delete-from-source failed; duplicate residency pending reconciliation", "key", key, "from", from, "error", delErr)
	}
	return nil
}

func (e *Engine) appendMigrationLog(key string, from, to Tier, reason string, success bool, errMsg string) {
	e.mu.Lock()
	e.migrationSeq++
	entry := MigrationLogEntry{
		Seq: e.migrationSeq, Key: key, From: from, To: to,
		At: e.clock.Now(), Reason: reason, Success: success, ErrorMsg: errMsg,
	}
	e.migrationLog = append(e.migrationLog, entry)
	if success {
		e.migrated++
	} else {
		e.migFailed++
	}
	e.mu.Unlock()
}

// MigrationLog returns a snapshot of the append-only migration log.
func (e *Engine) MigrationLog() []MigrationLogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]MigrationLogEntry, len(e.migrationLog))
	copy(out, e.migrationLog)
	return out
}

// PerformMigration runs one pass over up to BatchSize candidates nominated
// by the Access-Pattern Tracker, demoting any whose computed target tier is
// slower than their current one.
func (e *Engine) PerformMigration(ctx context.Context) MigrationResult {
	start := e.clock.Now()
	result := MigrationResult{}

	candidates := e.tracker.MigrationCandidates(e.cfg.BatchSize)
	for _, c := range candidates {
		e.mu.RLock()
		meta, ok := e.metadata[c.Key]
		e.mu.RUnlock()
		if !ok {
			continue
		}

		now := e.clock.Now()
		ageDays := AgeDays(now, meta.CreatedAt)
		staleDays := StaleDays(now, meta.LastAccessedAt)
		freq := Frequency(meta.AccessCount, ageDays)
		target := DetermineTargetTier(ageDays, staleDays, freq, meta.Tier)

		if target == meta.Tier {
			continue
		}
		// Only the migration pass demotes; promotion is handled on read.
		if target.Faster(meta.Tier) {
			continue
		}

		if !e.claimInFlight(c.Key) {
			continue
		}
		err := e.migrateOne(ctx, c.Key, meta.Tier, target, "scheduled_migration")
		e.releaseInFlight(c.Key)

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.Key, err))
			continue
		}
		result.Migrated++
		e.demotions++
	}

	result.Duration = e.clock.Now().Sub(start)
	return result
}

// EnforceRetentionPolicies delegates to the wired Retention Policy Engine.
func (e *Engine) EnforceRetentionPolicies(ctx context.Context) (int, error) {
	if e.retention == nil {
		return 0, nil
	}
	return e.retention.EnforceAll(ctx)
}

// GetStatistics returns per-tier item counts/bytes plus aggregate migration
// counters.
func (e *Engine) GetStatistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Statistics{ByTier: make(map[Tier]TierStats)}
	for _, meta := range e.metadata {
		ts := stats.ByTier[meta.Tier]
		ts.ItemCount++
		ts.Bytes += meta.SizeBytes
		stats.ByTier[meta.Tier] = ts
	}
	for t, ts := range stats.ByTier {
		ts.EstimatedCompressed = ts.Bytes / 2
		stats.ByTier[t] = ts
	}
	stats.TotalMigrated = e.migrated
	stats.TotalPromoted = e.promotions
	stats.TotalDemoted = e.demotions
	stats.MigrationFailed = e.migFailed
	return stats
}

// ItemsFor satisfies retention.Store: enumerate items matching (dataType, tier).
// Returns RetentionItem (not a local type) so retention.Item can be declared
// as a type alias to it — letting *Engine satisfy retention.Store without
// internal/tier importing internal/retention.
func (e *Engine) ItemsFor(dataType DataType, tr Tier) []RetentionItem {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []RetentionItem
	for key, meta := range e.metadata {
		if meta.DataType == dataType && meta.Tier == tr {
			out = append(out, RetentionItem{
				Key: key, DataType: meta.DataType, Tier: meta.Tier,
				CreatedAt: meta.CreatedAt, AccessCount: meta.AccessCount,
			})
		}
	}
	return out
}

// DeleteItem satisfies retention.Store.
func (e *Engine) DeleteItem(ctx context.Context, key string) error { return e.Delete(ctx, key) }

// ArchiveItem satisfies retention.Store: write to BACKUP, delete from
// current, flip metadata.tier.
func (e *Engine) ArchiveItem(ctx context.Context, key string) error {
	e.mu.RLock()
	meta, ok := e.metadata[key]
	var from Tier
	if ok {
		from = meta.Tier
	}
	e.mu.RUnlock()
	if !ok {
		return NewError(KindNotFound, "archive", key, fmt.Errorf("unknown key"))
	}
	return e.migrateOne(ctx, key, from, Backup, "retention_archive")
}

// DemoteItem satisfies retention.Store: move one tier down.
func (e *Engine) DemoteItem(ctx context.Context, key string) error {
	e.mu.RLock()
	meta, ok := e.metadata[key]
	var from Tier
	if ok {
		from = meta.Tier
	}
	e.mu.RUnlock()
	if !ok {
		return NewError(KindNotFound, "demote", key, fmt.Errorf("unknown key"))
	}
	return e.migrateOne(ctx, key, from, from.demoteOne(), "retention_demote")
}

// StartScheduler starts the periodic migration pass; it is cancellable and
// never runs two passes concurrently.
func (e *Engine) StartScheduler(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := e.clock.NewTicker(e.cfg.MigrationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-ticker.C():
				result := e.PerformMigration(ctx)
				e.log.Info("migration pass complete",
					"migrated", result.Migrated, "failed", result.Failed, "duration", result.Duration)
			}
		}
	}()
}

// Close cancels the scheduler and awaits in-flight work.
func (e *Engine) Close() error {
	e.once.Do(func() { close(e.stopCh) })
	e.wg.Wait()
	return nil
}
