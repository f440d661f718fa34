package bloom

import (
	"sync"

	"github.com/keyquarry/go-keyquarry/secmem"
)

// Filter is the classic single-bitset membership filter.
//
// Add and Clear take the filter mutex. Query deliberately reads without
// locking: a concurrent Add can only set bits, and a set bit never reverts
// outside Clear, so a racing Query can only move from "definitely not" to
// "maybe" for a value that really was added. Clear must not run concurrently
// with queries.
type Filter struct {
	mu    sync.Mutex
	m     uint64
	k     uint32
	bits  []byte
	items uint64
	st    stats
}

// New creates a filter sized for expectedItems at the target false positive
// rate.
func New(expectedItems uint64, fpRate float64) (*Filter, error) {
	m, k, err := SizeFor(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewBits(m, k)
}

// NewBits creates a filter with explicit geometry. The bit vector is
// cache-line aligned.
func NewBits(m uint64, k uint32) (*Filter, error) {
	if m == 0 {
		return nil, ErrBadM
	}
	if k == 0 {
		return nil, ErrBadK
	}
	buf, err := secmem.NewAligned(int(bitsetBytes(m)), secmem.DefaultAlignment)
	if err != nil {
		return nil, err
	}
	return &Filter{m: m, k: k, bits: buf.Bytes()}, nil
}

// M returns the bit count.
func (f *Filter) M() uint64 { return f.m }

// K returns the probe count.
func (f *Filter) K() uint32 { return f.k }

// Add sets the k probe positions for data.
func (f *Filter) Add(data []byte) {
	base := baseDigest(data)
	f.mu.Lock()
	for i := uint32(0); i < f.k; i++ {
		j := probe(base, i, f.m)
		f.bits[j>>3] |= 1 << (j & 7)
	}
	f.items++
	f.mu.Unlock()
}

// Query reports whether data may have been added. False means definitely
// not.
func (f *Filter) Query(data []byte) bool {
	base := baseDigest(data)
	f.st.queries.Add(1)
	for i := uint32(0); i < f.k; i++ {
		j := probe(base, i, f.m)
		if f.bits[j>>3]&(1<<(j&7)) == 0 {
			return false
		}
	}
	f.st.positives.Add(1)
	return true
}

// Clear zeros the bit vector and the item count. Callers must quiesce
// queries first.
func (f *Filter) Clear() {
	f.mu.Lock()
	clear(f.bits)
	f.items = 0
	f.mu.Unlock()
}

// ItemsAdded returns the number of Add calls since creation or Clear.
func (f *Filter) ItemsAdded() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items
}

// Stats snapshots the filter counters.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	items := f.items
	f.mu.Unlock()
	return Stats{
		Bits:           f.m,
		HashFunctions:  f.k,
		ItemsAdded:     items,
		MemoryBytes:    uint64(len(f.bits)),
		ExpectedFPRate: ExpectedFPRate(f.m, f.k, items),
		Queries:        f.st.queries.Load(),
		Positives:      f.st.positives.Load(),
	}
}
