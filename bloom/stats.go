package bloom

import "sync/atomic"

// stats holds the relaxed counters a live filter maintains.
type stats struct {
	queries   atomic.Uint64
	positives atomic.Uint64
}

// Stats is a point-in-time snapshot of a filter's counters and geometry.
type Stats struct {
	Bits           uint64
	HashFunctions  uint32
	ItemsAdded     uint64
	MemoryBytes    uint64
	ExpectedFPRate float64
	Queries        uint64
	Positives      uint64
}

// ObservedPositiveRate returns positives/queries, or 0 before any query.
func (s Stats) ObservedPositiveRate() float64 {
	if s.Queries == 0 {
		return 0
	}
	return float64(s.Positives) / float64(s.Queries)
}
