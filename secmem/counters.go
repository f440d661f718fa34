package secmem

import "sync/atomic"

// Process-wide allocation accounting for the buffers and pools in this
// package. Updated with relaxed atomics; totals are advisory.
var (
	allocatedBytes atomic.Uint64
	freedBytes     atomic.Uint64
	allocations    atomic.Uint64
)

func countersAdd(n uint64) {
	allocatedBytes.Add(n)
	allocations.Add(1)
}

func countersSub(n uint64) {
	freedBytes.Add(n)
}

// Counters is a snapshot of the global allocation counters.
type Counters struct {
	AllocatedBytes uint64
	FreedBytes     uint64
	LiveBytes      uint64
	Allocations    uint64
}

// ReadCounters returns a snapshot of the global counters. The fields are
// read independently; the snapshot is not atomic across fields.
func ReadCounters() Counters {
	a := allocatedBytes.Load()
	f := freedBytes.Load()
	live := uint64(0)
	if a > f {
		live = a - f
	}
	return Counters{
		AllocatedBytes: a,
		FreedBytes:     f,
		LiveBytes:      live,
		Allocations:    allocations.Load(),
	}
}
