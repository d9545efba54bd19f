// Copyright 2025 Takhin Data, Inc.

// Package retention implements the Retention Policy Engine: declarative
// (data_type, tier)-scoped rules, violation detection, and action selection
// (delete/archive/demote).
//
// Grounded on the teacher's pkg/storage/log/cleanup.go (RetentionPolicy,
// DefaultRetentionPolicy, DeleteSegmentsIfNeeded's scan-then-act-under-lock
// shape) and pkg/storage/log/cleaner.go's ticker-driven background sweep,
// generalized from Kafka's single size/age-bounded log policy into the
// spec's multi-policy, severity-banded table. Struct/action shape
// cross-checked against other_examples/a9907539_meettoy2004-lnmonja__..
// retention.go and other_examples/0d0ff1b8_getaxonflow-axonflow__..
// tier_aware_policy_engine.go.
package retention

import (
	"time"

	"github.com/takhin-data/stratum/internal/tier"
)

// ViolationType enumerates the three detection rules from §4.3.
type ViolationType string

const (
	ViolationRetentionExceeded   ViolationType = "retention_exceeded"
	ViolationAccessCountExceeded ViolationType = "access_count_exceeded"
	ViolationAgeExceeded         ViolationType = "age_exceeded"
)

// Severity is the four-band scale used to pick an enforcement action.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Action is the remediation chosen for a violation.
type Action string

const (
	ActionDelete         Action = "delete"
	ActionArchive        Action = "archive"
	ActionDemote         Action = "demote"
	ActionNone           Action = "none"
)

// Policy is one declarative (data_type, tier)-scoped retention rule.
type Policy struct {
	ID               string
	Name             string
	DataType         tier.DataType
	Tier             tier.Tier
	MaxRetentionDays int
	MaxAccessCount   *int64
	MaxAgeDays       *int
	Enabled          bool
	Priority         int
	Description      string
}

// Violation is one detected breach of a Policy by a specific item.
type Violation struct {
	ID             string
	PolicyID       string
	Key            string
	CurrentTier    tier.Tier
	Type           ViolationType
	CurrentValue   float64
	ThresholdValue float64
	Severity       Severity
	DetectedAt     time.Time
	ResolvedAt     *time.Time
	ActionTaken    Action
}

// EnforcementReport is returned by enforcing one policy (or all policies).
type EnforcementReport struct {
	ItemsChecked    int
	ViolationsFound int
	Deleted         int
	Archived        int
	Moved           int
	ExecutionTime   time.Duration
	Errors          []string
}
