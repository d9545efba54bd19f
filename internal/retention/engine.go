// Copyright 2025 Takhin Data, Inc.

package retention

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/pkg/logger"
)

// Engine is the Retention Policy Engine.
type Engine struct {
	mu         sync.RWMutex
	clock      clock.Clock
	store      Store
	policies   map[string]Policy
	violations []Violation
	log        *logger.Logger
	zlog       *zap.Logger
	idSeq      uint64
}

// New builds a retention Engine. Per-item errors go through log (slog,
// shared with the rest of the process); per-pass summaries go through a
// dedicated zap logger, grounded on the teacher's pkg/storage/log/cleaner.go
// background-job logging (there the log cleaner's own *zap.Logger, separate
// from the server's request-scoped logger).
func New(clk clock.Clock, store Store, log *logger.Logger) *Engine {
	zlog, _ := zap.NewProduction()
	e := &Engine{
		clock:    clk,
		store:    store,
		policies: make(map[string]Policy),
		log:      log.WithComponent("retention"),
		zlog:     zlog,
	}
	for _, p := range DefaultPolicies() {
		e.policies[p.Name] = p
	}
	return e
}

// AddPolicy registers or replaces a policy; duplicates suppressed by Name.
func (e *Engine) AddPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies[p.Name] = p
}

func (e *Engine) nextID() string {
	e.idSeq++
	return fmt.Sprintf("violation-%d", e.idSeq)
}

// EnforceOne runs one named policy and returns its report.
func (e *Engine) EnforceOne(ctx context.Context, name string) (EnforcementReport, error) {
	e.mu.RLock()
	p, ok := e.policies[name]
	e.mu.RUnlock()
	if !ok {
		return EnforcementReport{}, fmt.Errorf("retention: unknown policy %q", name)
	}
	return e.enforce(ctx, p), nil
}

// EnforceAll iterates every enabled policy in descending priority order; the
// first matching policy for a given item wins. Returns the aggregate deleted
// count (Store's EnforceRetentionPolicies contract); the per-pass totals are
// logged, not returned.
func (e *Engine) EnforceAll(ctx context.Context) (int, error) {
	e.mu.RLock()
	policies := make([]Policy, 0, len(e.policies))
	for _, p := range e.policies {
		if p.Enabled {
			policies = append(policies, p)
		}
	}
	e.mu.RUnlock()

	sort.Slice(policies, func(i, j int) bool { return policies[i].Priority > policies[j].Priority })

	start := e.clock.Now()
	e.zlog.Info("retention sweep starting", zap.Int("policy_count", len(policies)))

	seen := make(map[string]bool)
	totalDeleted, totalArchived, totalMoved, totalChecked := 0, 0, 0, 0
	for _, p := range policies {
		report := e.enforceSkipping(ctx, p, seen)
		totalDeleted += report.Deleted
		totalArchived += report.Archived
		totalMoved += report.Moved
		totalChecked += report.ItemsChecked
	}

	e.zlog.Info("retention sweep complete",
		zap.Int("items_checked", totalChecked),
		zap.Int("deleted", totalDeleted),
		zap.Int("archived", totalArchived),
		zap.Int("moved", totalMoved),
		zap.Duration("duration", e.clock.Now().Sub(start)))

	return totalDeleted, nil
}

func (e *Engine) enforce(ctx context.Context, p Policy) EnforcementReport {
	return e.enforceSkipping(ctx, p, make(map[string]bool))
}

// enforceSkipping runs p, skipping any key already claimed by a
// higher-priority policy this pass (seen). Matching keys are added to seen.
func (e *Engine) enforceSkipping(ctx context.Context, p Policy, seen map[string]bool) EnforcementReport {
	start := e.clock.Now()
	report := EnforcementReport{}

	items := e.store.ItemsFor(p.DataType, p.Tier)
	for _, item := range items {
		if seen[item.Key] {
			continue
		}
		report.ItemsChecked++

		v, matched := detectViolation(e.clock.Now(), p, item)
		if !matched {
			continue
		}
		seen[item.Key] = true
		report.ViolationsFound++

		v.ID = e.nextID()
		action := selectAction(v)
		v.ActionTaken = action

		var err error
		switch action {
		case ActionDelete:
			err = e.store.DeleteItem(ctx, item.Key)
			if err == nil {
				report.Deleted++
			}
		case ActionArchive:
			err = e.store.ArchiveItem(ctx, item.Key)
			if err == nil {
				report.Archived++
			}
		case ActionDemote:
			err = e.store.DemoteItem(ctx, item.Key)
			if err == nil {
				report.Moved++
			}
		}
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", item.Key, err))
			e.log.Error("retention action failed", "key", item.Key, "action", action, "error", err)
		}

		e.mu.Lock()
		e.violations = append(e.violations, v)
		e.mu.Unlock()
	}

	report.ExecutionTime = e.clock.Now().Sub(start)
	return report
}

// detectViolation implements the three detection rules from §4.3.
func detectViolation(now time.Time, p Policy, item Item) (Violation, bool) {
	ageDays := now.Sub(item.CreatedAt).Hours() / 24

	if p.MaxRetentionDays > 0 && ageDays > float64(p.MaxRetentionDays) {
		sev := SeverityHigh
		if ageDays > 2*float64(p.MaxRetentionDays) {
			sev = SeverityCritical
		}
		return Violation{
			PolicyID: p.ID, Key: item.Key, CurrentTier: item.Tier,
			Type: ViolationRetentionExceeded, CurrentValue: ageDays,
			ThresholdValue: float64(p.MaxRetentionDays), Severity: sev,
			DetectedAt: now,
		}, true
	}

	if p.MaxAccessCount != nil && item.AccessCount > *p.MaxAccessCount {
		return Violation{
			PolicyID: p.ID, Key: item.Key, CurrentTier: item.Tier,
			Type: ViolationAccessCountExceeded, CurrentValue: float64(item.AccessCount),
			ThresholdValue: float64(*p.MaxAccessCount), Severity: SeverityMedium,
			DetectedAt: now,
		}, true
	}

	if p.MaxAgeDays != nil && ageDays > float64(*p.MaxAgeDays) {
		sev := SeverityHigh
		if ageDays > 2*float64(*p.MaxAgeDays) {
			sev = SeverityCritical
		}
		return Violation{
			PolicyID: p.ID, Key: item.Key, CurrentTier: item.Tier,
			Type: ViolationAgeExceeded, CurrentValue: ageDays,
			ThresholdValue: float64(*p.MaxAgeDays), Severity: sev,
			DetectedAt: now,
		}, true
	}

	return Violation{}, false
}

// selectAction implements the action-selection table from §4.3.
// access_count_exceeded always demotes (Open Question resolved per spec.md
// §9: "Retention action for access_count_exceeded is always moveToLowerTier;
// do not re-interpret.").
func selectAction(v Violation) Action {
	if v.Type == ViolationAccessCountExceeded {
		return ActionDemote
	}
	switch v.Severity {
	case SeverityCritical:
		return ActionDelete
	case SeverityHigh:
		return ActionArchive
	default:
		return ActionDemote
	}
}

// Violations returns a snapshot of all violations recorded so far.
func (e *Engine) Violations() []Violation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Violation, len(e.violations))
	copy(out, e.violations)
	return out
}
