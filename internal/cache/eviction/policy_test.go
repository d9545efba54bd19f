package eviction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC)
}

// scenario 4 from spec §8: LRU eviction correctness.
func TestLRUEvictionCorrectness(t *testing.T) {
	p := NewLRU()
	p.Touch(Entry{Key: "a", AccessedAt: at(0)})
	p.Touch(Entry{Key: "b", AccessedAt: at(1)})
	p.Touch(Entry{Key: "c", AccessedAt: at(2)})
	p.Touch(Entry{Key: "a", AccessedAt: at(3)}) // get(a)

	victim, ok := p.Evict()
	require.True(t, ok)
	assert.Equal(t, "b", victim)
}

func TestLFUEvictsSmallestAccessCountTieBrokenByOldest(t *testing.T) {
	p := NewLFU()
	p.Touch(Entry{Key: "a", AccessCount: 5, AccessedAt: at(0)})
	p.Touch(Entry{Key: "b", AccessCount: 2, AccessedAt: at(5)})
	p.Touch(Entry{Key: "c", AccessCount: 2, AccessedAt: at(1)})

	victim, ok := p.Evict()
	require.True(t, ok)
	assert.Equal(t, "c", victim)
}

func TestFIFOIgnoresReadsAndEvictsOldestCreated(t *testing.T) {
	p := NewFIFO()
	p.Touch(Entry{Key: "a", CreatedAt: at(0)})
	p.Touch(Entry{Key: "b", CreatedAt: at(1)})
	p.Touch(Entry{Key: "a", CreatedAt: at(99)}) // re-touch must not move FIFO order

	victim, ok := p.Evict()
	require.True(t, ok)
	assert.Equal(t, "a", victim)
}

func TestPriorityFallsBackToLRUByDefault(t *testing.T) {
	p := NewPriority(nil)
	p.Touch(Entry{Key: "a", Priority: 1, AccessedAt: at(0)})
	p.Touch(Entry{Key: "b", Priority: 1, AccessedAt: at(1)})
	p.Touch(Entry{Key: "c", Priority: 5, AccessedAt: at(2)})

	victim, ok := p.Evict()
	require.True(t, ok)
	assert.Equal(t, "a", victim)
}

func TestResetTransfersEntriesAcrossPolicySwitch(t *testing.T) {
	lru := NewLRU()
	lru.Touch(Entry{Key: "a", AccessedAt: at(0)})
	lru.Touch(Entry{Key: "b", AccessedAt: at(1)})

	lfu := NewLFU()
	lfu.Reset([]Entry{
		{Key: "a", AccessCount: 1, AccessedAt: at(0)},
		{Key: "b", AccessCount: 9, AccessedAt: at(1)},
	})

	victim, ok := lfu.Evict()
	require.True(t, ok)
	assert.Equal(t, "a", victim)
}
