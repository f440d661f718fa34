package bloom

import (
	"sync"

	"github.com/keyquarry/go-keyquarry/secmem"
)

// Counting is a membership filter with a b-bit saturating counter per
// position, supporting removal. Counters saturate at 2^b - 1 and never
// decrement past a saturated value: once an element's minimum counter
// saturates, the element is stuck and Remove reports false for it.
type Counting struct {
	mu          sync.Mutex
	m           uint64
	k           uint32
	counterBits uint8
	maxCount    uint8
	counters    []byte
	items       uint64
}

// NewCounting creates a counting filter of m counters of counterBits bits
// each, probed k times per key. counterBits must be in 1..8.
func NewCounting(m uint64, k uint32, counterBits uint8) (*Counting, error) {
	if m == 0 {
		return nil, ErrBadM
	}
	if k == 0 {
		return nil, ErrBadK
	}
	if counterBits < 1 || counterBits > 8 {
		return nil, ErrBadCounter
	}
	buf, err := secmem.NewAligned(int(counterBytes(m, counterBits)), secmem.DefaultAlignment)
	if err != nil {
		return nil, err
	}
	return &Counting{
		m:           m,
		k:           k,
		counterBits: counterBits,
		maxCount:    uint8(1<<counterBits - 1),
		counters:    buf.Bytes(),
	}, nil
}

// M returns the counter count.
func (c *Counting) M() uint64 { return c.m }

// K returns the probe count.
func (c *Counting) K() uint32 { return c.k }

// CounterBits returns the per-counter width.
func (c *Counting) CounterBits() uint8 { return c.counterBits }

// MaxCount returns the saturation value 2^b - 1.
func (c *Counting) MaxCount() uint8 { return c.maxCount }

// counter reads counter j. Caller holds the mutex.
func (c *Counting) counter(j uint64) uint8 {
	bitOff := j * uint64(c.counterBits)
	byteOff := bitOff >> 3
	shift := bitOff & 7
	v := uint16(c.counters[byteOff]) >> shift
	// A counter can straddle a byte boundary.
	if shift+uint64(c.counterBits) > 8 {
		v |= uint16(c.counters[byteOff+1]) << (8 - shift)
	}
	return uint8(v) & c.maxCount
}

// setCounter writes counter j. Caller holds the mutex.
func (c *Counting) setCounter(j uint64, v uint8) {
	bitOff := j * uint64(c.counterBits)
	byteOff := bitOff >> 3
	shift := bitOff & 7
	mask := uint16(c.maxCount) << shift
	cur := uint16(c.counters[byteOff])
	if shift+uint64(c.counterBits) > 8 {
		cur |= uint16(c.counters[byteOff+1]) << 8
	}
	cur = cur&^mask | uint16(v)<<shift
	c.counters[byteOff] = byte(cur)
	if shift+uint64(c.counterBits) > 8 {
		c.counters[byteOff+1] = byte(cur >> 8)
	}
}

// Add increments the k probe counters for data, saturating at MaxCount.
func (c *Counting) Add(data []byte) {
	base := baseDigest(data)
	c.mu.Lock()
	for i := uint32(0); i < c.k; i++ {
		j := probe(base, i, c.m)
		if v := c.counter(j); v < c.maxCount {
			c.setCounter(j, v+1)
		}
	}
	c.items++
	c.mu.Unlock()
}

// Remove decrements the k probe counters for data and reports true, but
// only when the minimum counter is at least 1 and not saturated; otherwise
// no counter changes and Remove reports false.
func (c *Counting) Remove(data []byte) bool {
	base := baseDigest(data)
	c.mu.Lock()
	defer c.mu.Unlock()

	min := c.maxCount
	for i := uint32(0); i < c.k; i++ {
		if v := c.counter(probe(base, i, c.m)); v < min {
			min = v
		}
	}
	if min == 0 || min == c.maxCount {
		return false
	}
	for i := uint32(0); i < c.k; i++ {
		j := probe(base, i, c.m)
		c.setCounter(j, c.counter(j)-1)
	}
	if c.items > 0 {
		c.items--
	}
	return true
}

// Query reports whether every probe counter for data is at least 1.
func (c *Counting) Query(data []byte) bool {
	base := baseDigest(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint32(0); i < c.k; i++ {
		if c.counter(probe(base, i, c.m)) == 0 {
			return false
		}
	}
	return true
}

// MinCount returns the minimum counter across the key's probes.
func (c *Counting) MinCount(data []byte) uint8 {
	base := baseDigest(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	min := c.maxCount
	for i := uint32(0); i < c.k; i++ {
		if v := c.counter(probe(base, i, c.m)); v < min {
			min = v
		}
	}
	return min
}

// ItemsAdded returns adds minus successful removes.
func (c *Counting) ItemsAdded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Clear zeros all counters.
func (c *Counting) Clear() {
	c.mu.Lock()
	clear(c.counters)
	c.items = 0
	c.mu.Unlock()
}
