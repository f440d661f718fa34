package search

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/keyquarry/go-keyquarry/bloom"
	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/uint256"
)

// TargetSet is the materialized exact set of hash160 targets. The bloom
// prefilter answers "maybe"; this set confirms. Reads after the build
// phase take no lock: the coordinator freezes the set before dispatch.
type TargetSet struct {
	mu     sync.Mutex
	hashes map[uint256.Hash160]struct{}
}

// NewTargetSet returns an empty set.
func NewTargetSet() *TargetSet {
	return &TargetSet{hashes: make(map[uint256.Hash160]struct{})}
}

// Add inserts one target hash. Duplicates are absorbed.
func (t *TargetSet) Add(h uint256.Hash160) {
	t.mu.Lock()
	t.hashes[h] = struct{}{}
	t.mu.Unlock()
}

// AddAddress decodes a Base58Check or Bech32 address and adds its payload.
func (t *TargetSet) AddAddress(addr string) error {
	_, h, err := DecodeAddress(addr)
	if err != nil {
		return err
	}
	t.Add(h)
	return nil
}

// Contains is the exact membership test on the hot path after a filter
// positive. It reads without locking; the set must be frozen first.
func (t *TargetSet) Contains(h uint256.Hash160) bool {
	_, ok := t.hashes[h]
	return ok
}

// Count returns the target count.
func (t *TargetSet) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hashes)
}

// Hashes returns a copy of the targets for snapshotting.
func (t *TargetSet) Hashes() []uint256.Hash160 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint256.Hash160, 0, len(t.hashes))
	for h := range t.hashes {
		out = append(out, h)
	}
	return out
}

// LoadFile reads targets from path, one per line. A line is either an
// address or a 40-nybble hash160 hex string; blank lines and #-comments
// are skipped. Returns the number of targets added. Any malformed line
// aborts with a Parse error naming the line.
func (t *TargetSet) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errs.Wrap(errs.IO, "opening target file", err)
	}
	defer f.Close()

	added := 0
	sc := bufio.NewScanner(f)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) == 40 {
			if h, err := uint256.Hash160FromHex(line); err == nil {
				t.Add(h)
				added++
				continue
			}
		}
		if err := t.AddAddress(line); err != nil {
			return added, errs.Wrap(errs.Parse, "target file line "+strconv.Itoa(lineNo), err)
		}
		added++
	}
	if err := sc.Err(); err != nil {
		return added, errs.Wrap(errs.IO, "reading target file", err)
	}
	return added, nil
}

// BuildFilter constructs the prefilter over the current targets using the
// explicit geometry from the parameter record: m = n * bitsPerElement.
// The build phase is exclusive; the returned filter is read-mostly.
func (t *TargetSet) BuildFilter(bitsPerElement, hashFunctions int) (*bloom.Filter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := uint64(len(t.hashes))
	if n == 0 {
		n = 1
	}
	f, err := bloom.NewBits(n*uint64(bitsPerElement), uint32(hashFunctions))
	if err != nil {
		return nil, err
	}
	for h := range t.hashes {
		f.Add(h[:])
	}
	return f, nil
}
