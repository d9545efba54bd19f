// Copyright 2025 Takhin Data, Inc.

// Package eviction implements the four pluggable L1 eviction policies —
// LRU, LFU, FIFO, Priority — as hot-swappable implementations of one
// interface, per spec.md §4.4's eviction contract.
//
// Grounded on the bounded-map-with-sweep shape in the teacher's
// pkg/storage/tiered/tiered_storage.go (startArchiver) generalized to a
// policy-driven single-entry eviction rule, cross-checked against
// other_examples/222b1aa7_vasic-digital-SuperAgent__..tiered_cache.go's
// policy-by-struct-tag layout.
package eviction

import "time"

// Entry is the minimal view of an L1 cache row a Policy needs to order and
// select victims. The cache package copies its L1 rows into Entry values.
type Entry struct {
	Key         string
	CreatedAt   time.Time
	AccessedAt  time.Time
	AccessCount int64
	Priority    int
}

// Policy maintains order metadata over a bounded key set and chooses exactly
// one eviction victim per Evict call. Implementations are not expected to be
// safe for concurrent use; the owning cache serializes access.
type Policy interface {
	// Name identifies the policy (e.g. for metrics/logging).
	Name() string
	// Touch records that key was read or written, updating MRU/frequency
	// order as the policy defines it.
	Touch(e Entry)
	// Remove drops key from the policy's internal order metadata.
	Remove(key string)
	// Evict selects and removes exactly one victim, or ("", false) if the
	// policy is tracking no entries.
	Evict() (string, bool)
	// Reset replaces all tracked order metadata with entries, used when
	// switching policies at runtime (entries must transfer losslessly).
	Reset(entries []Entry)
}

// New constructs a Policy by name. fallback is only consulted for "priority".
func New(name string, fallback Policy) Policy {
	switch name {
	case "lfu", "LFU":
		return NewLFU()
	case "fifo", "FIFO":
		return NewFIFO()
	case "priority", "Priority", "PRIORITY":
		if fallback == nil {
			fallback = NewLRU()
		}
		return NewPriority(fallback)
	default:
		return NewLRU()
	}
}
