// Copyright 2025 Takhin Data, Inc.

package retention

import "github.com/takhin-data/stratum/internal/tier"

func intPtr(v int) *int         { return &v }
func int64Ptr(v int64) *int64   { return &v }

// DefaultPolicies returns the seeded policies from §4.3. New loads them into
// the engine's in-memory policy map, keyed by name, so a later policy with
// the same name replaces the default. They are not written to any store.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			ID: "default-hot-user-profile", Name: "hot-user-profile",
			DataType: tier.DataTypeUserProfile, Tier: tier.Hot,
			MaxRetentionDays: 7, MaxAccessCount: int64Ptr(10),
			Enabled: true, Priority: 100,
			Description: "HOT user-profile: 7 days or 10 accesses",
		},
		{
			ID: "default-hot-conversation", Name: "hot-conversation",
			DataType: tier.DataTypeConversation, Tier: tier.Hot,
			MaxRetentionDays: 1, MaxAccessCount: int64Ptr(20),
			Enabled: true, Priority: 100,
			Description: "HOT conversation: 1 day or 20 accesses",
		},
		{
			ID: "default-warm-message", Name: "warm-message",
			DataType: tier.DataTypeMessage, Tier: tier.Warm,
			MaxRetentionDays: 90,
			Enabled: true, Priority: 90,
			Description: "WARM message: 90 days",
		},
		{
			ID: "default-warm-analytics", Name: "warm-analytics",
			DataType: tier.DataTypeAnalytics, Tier: tier.Warm,
			MaxRetentionDays: 30,
			Enabled: true, Priority: 90,
			Description: "WARM analytics: 30 days",
		},
		{
			ID: "default-cold-conversation", Name: "cold-conversation",
			DataType: tier.DataTypeConversation, Tier: tier.Cold,
			MaxRetentionDays: 365,
			Enabled: true, Priority: 80,
			Description: "COLD conversation: 365 days",
		},
		{
			ID: "default-backup-code-modification", Name: "backup-code-modification",
			DataType: tier.DataTypeCodeModification, Tier: tier.Backup,
			MaxRetentionDays: 2555,
			Enabled: true, Priority: 70,
			Description: "BACKUP code-modification: 2555 days",
		},
	}
}
