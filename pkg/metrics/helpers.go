// Copyright 2025 Takhin Data, Inc.

package metrics

import (
	"github.com/takhin-data/stratum/internal/retention"
	"github.com/takhin-data/stratum/internal/tier"
	"github.com/takhin-data/stratum/internal/warmer"
)

// RecordMigration folds one PerformMigration report into the migration
// counters/histogram. cmd/stratumd calls it after a forced migration pass
// (the admin /migrate handler); scheduled passes do not record here.
func RecordMigration(result tier.MigrationResult) {
	if result.Migrated > 0 {
		MigrationsTotal.Add(float64(result.Migrated))
	}
	if result.Failed > 0 {
		MigrationsFailedTotal.Add(float64(result.Failed))
	}
	MigrationDuration.Observe(result.Duration.Seconds())
}

// RecordEnforcement folds one retention EnforcementReport into the
// retention counters.
func RecordEnforcement(report retention.EnforcementReport) {
	RetentionItemsChecked.Add(float64(report.ItemsChecked))
	RetentionViolationsFound.Add(float64(report.ViolationsFound))
	RetentionDeleted.Add(float64(report.Deleted))
	RetentionArchived.Add(float64(report.Archived))
	RetentionMoved.Add(float64(report.Moved))
}

// RecordInvalidation increments the invalidation counter for one event type
// (ttl, manual, tag, dependency, pattern), per spec.md §4.5.
func RecordInvalidation(eventType string) {
	InvalidationsTotal.WithLabelValues(eventType).Inc()
}

// RecordWarmupStats sets the warm-up pending and average-duration gauges
// from a Cache Warmer stats snapshot. The success/failure counters are not
// touched here; the Collector advances them from deltas between ticks.
func RecordWarmupStats(stats warmer.Stats) {
	WarmupPending.Set(float64(stats.Pending))
	WarmupAvgDurationMs.Set(stats.AvgWarmupTimeMs)
}
