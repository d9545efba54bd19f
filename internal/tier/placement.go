// Copyright 2025 Takhin Data, Inc.

package tier

import "time"

// InitialTier implements the placement policy table from §4.1: hot for
// user-profile/bot-state/configuration, warm for
// conversation/message/code-modification/embedding, cold for analytics.
func InitialTier(dt DataType) Tier {
	switch dt {
	case DataTypeUserProfile, DataTypeBotState, DataTypeConfiguration:
		return Hot
	case DataTypeConversation, DataTypeMessage, DataTypeCodeModification, DataTypeEmbedding:
		return Warm
	case DataTypeAnalytics:
		return Cold
	default:
		return Warm
	}
}

// DetermineTargetTier implements determine_target_tier from §4.1. Rules are
// evaluated in order and the first match wins — this is an explicit Open
// Question resolution, not an arbitrary choice: "Source applies first-match
// in the documented order; reimplement identically."
func DetermineTargetTier(ageDays, staleDays float64, freq float64, current Tier) Tier {
	switch {
	case freq > 10 && staleDays < 1:
		return Hot
	case freq > 1 && staleDays < 7:
		return Warm
	case staleDays > 30:
		return Cold
	case ageDays > 90:
		return Backup
	default:
		return current
	}
}

// AgeDays and StaleDays translate timestamps into the day-granularity figures
// DetermineTargetTier expects.
func AgeDays(now, createdAt time.Time) float64 {
	return now.Sub(createdAt).Hours() / 24
}

func StaleDays(now, lastAccessedAt time.Time) float64 {
	return now.Sub(lastAccessedAt).Hours() / 24
}

// Frequency computes access_count / max(age_days, 1).
func Frequency(accessCount int64, ageDays float64) float64 {
	if ageDays < 1 {
		ageDays = 1
	}
	return float64(accessCount) / ageDays
}

// ShouldPromote implements the promotion-on-hit rule: "after a hit from
// from_tier, consider promoting to the tier one level higher iff freq > 5."
func ShouldPromote(freq float64, current Tier) (Tier, bool) {
	if current == Hot {
		return current, false
	}
	if freq > 5 {
		return current.promoteOne(), true
	}
	return current, false
}
