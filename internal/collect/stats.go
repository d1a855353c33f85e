package collect

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/avoronov/ringlog/internal/severity"
)

// Stats collects capture counters for status reporting and the TUI.
// All methods are safe for concurrent use.
type Stats struct {
	Captured  atomic.Int64
	Rejected  atomic.Int64
	Truncated atomic.Int64
	Drained   atomic.Int64
	Drains    atomic.Int64
	Resets    atomic.Int64

	mu      sync.Mutex
	byLevel map[int32]int64
}

// NewStats creates a Stats collector.
func NewStats() *Stats {
	return &Stats{
		byLevel: make(map[int32]int64),
	}
}

// RecordCapture increments the captured counter and the per-level count.
func (s *Stats) RecordCapture(level int32) {
	s.Captured.Add(1)

	s.mu.Lock()
	s.byLevel[level]++
	s.mu.Unlock()
}

// LevelCount is a severity name and its cumulative capture count.
type LevelCount struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Captured  int64        `json:"captured"`
	Rejected  int64        `json:"rejected"`
	Truncated int64        `json:"truncated"`
	Drained   int64        `json:"drained"`
	Drains    int64        `json:"drains"`
	Resets    int64        `json:"resets"`
	ByLevel   []LevelCount `json:"by_level,omitempty"`
}

// Snapshot returns a point-in-time copy of all counters, per-level counts
// sorted highest first.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Captured:  s.Captured.Load(),
		Rejected:  s.Rejected.Load(),
		Truncated: s.Truncated.Load(),
		Drained:   s.Drained.Load(),
		Drains:    s.Drains.Load(),
		Resets:    s.Resets.Load(),
	}

	s.mu.Lock()
	snap.ByLevel = make([]LevelCount, 0, len(s.byLevel))
	for code, count := range s.byLevel {
		name, err := severity.Name(code)
		if err != nil {
			name = "unknown"
		}
		snap.ByLevel = append(snap.ByLevel, LevelCount{Level: name, Count: count})
	}
	s.mu.Unlock()

	sort.Slice(snap.ByLevel, func(i, j int) bool {
		return snap.ByLevel[i].Count > snap.ByLevel[j].Count
	})

	return snap
}
