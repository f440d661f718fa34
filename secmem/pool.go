package secmem

import (
	"errors"
	"sync"
)

var ErrBadBlockSize = errors.New("secmem: pool block size and count must be nonzero")

// Pool is a bump-pointer allocator over fixed-size slabs. Allocation is O(1)
// under a single mutex. Reset rewinds the bump pointer and keeps the slabs
// for reuse.
type Pool struct {
	mu        sync.Mutex
	blockSize int
	perSlab   int
	slabs     [][]byte
	slab      int // index of the slab being bumped
	offset    int // blocks consumed in the current slab
}

// NewPool creates a pool handing out blockSize-byte blocks, perSlab blocks
// to a slab.
func NewPool(blockSize, perSlab int) (*Pool, error) {
	if blockSize <= 0 || perSlab <= 0 {
		return nil, ErrBadBlockSize
	}
	return &Pool{blockSize: blockSize, perSlab: perSlab}, nil
}

// Get returns the next free block, growing by one slab when the current one
// is exhausted. Blocks are only reclaimed in bulk by Reset.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.slab == len(p.slabs) {
		p.slabs = append(p.slabs, make([]byte, p.blockSize*p.perSlab))
		countersAdd(uint64(p.blockSize * p.perSlab))
	}
	s := p.slabs[p.slab]
	off := p.offset * p.blockSize
	block := s[off : off+p.blockSize : off+p.blockSize]

	p.offset++
	if p.offset == p.perSlab {
		p.slab++
		p.offset = 0
	}
	return block
}

// Reset rewinds the bump pointer. Previously handed out blocks become
// invalid; the slabs remain allocated for reuse.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slab = 0
	p.offset = 0
}

// TotalUsed returns the bytes currently handed out.
func (p *Pool) TotalUsed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (p.slab*p.perSlab + p.offset) * p.blockSize
}

// TotalReserved returns the bytes held in slabs, used or not.
func (p *Pool) TotalReserved() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slabs) * p.perSlab * p.blockSize
}
