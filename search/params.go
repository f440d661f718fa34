package search

import (
	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/uint256"
)

// Mode selects the sweep strategy over a work unit.
type Mode uint8

const (
	ModeSequential Mode = iota
	ModeBackward
	ModeBoth
	ModeRandom
	ModeDance

	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeBackward:
		return "backward"
	case ModeBoth:
		return "both"
	case ModeRandom:
		return "random"
	case ModeDance:
		return "dance"
	}
	return "unknown"
}

// KeyType selects which public key serializations are hashed and tested.
type KeyType uint8

const (
	KeyUncompressed KeyType = iota
	KeyCompressed
	KeyBoth

	numKeyTypes
)

func (k KeyType) String() string {
	switch k {
	case KeyUncompressed:
		return "uncompressed"
	case KeyCompressed:
		return "compressed"
	case KeyBoth:
		return "both"
	}
	return "unknown"
}

// Params is the authoritative parameter record for a search run.
type Params struct {
	// Range is the enumeration window.
	Range uint256.Range
	// M sizes the per-batch candidate table. Default 2^22.
	M uint64
	// KFactor is the time/space trade-off multiplier, >= 1.
	KFactor int
	// NumThreads is the worker count; 0 selects one per logical CPU.
	NumThreads int
	// Stride is the step between successive candidates. 0 means 1.
	Stride uint64
	Mode   Mode
	// KeyType selects the public key form(s) tested.
	KeyType KeyType

	BloomBitsPerElement int
	BloomHashFunctions  int

	// MaxMemoryMB bounds table allocations. 0 = unlimited.
	MaxMemoryMB uint64

	// StopOnFound cancels the sweep after the first confirmed hit.
	StopOnFound bool

	CheckpointEnabled   bool
	CheckpointIntervalS uint32
	CheckpointPath      string

	// DeviceWeights sets how many CPU engines Initialize creates when none
	// was added: one per entry. Engines pull equal-width units from one
	// shared queue; the weight values are only checked to be non-negative
	// and do not set an engine's share of the range.
	// Empty means a single CPU engine.
	DeviceWeights []float64
}

// DefaultParams returns the documented defaults. The range is left empty
// and must be supplied by the caller.
func DefaultParams() Params {
	return Params{
		Range:               uint256.NewRange(uint256.New(1), uint256.New(0)),
		M:                   1 << 22,
		KFactor:             1,
		Stride:              1,
		Mode:                ModeSequential,
		KeyType:             KeyCompressed,
		BloomBitsPerElement: 14,
		BloomHashFunctions:  10,
		CheckpointIntervalS: 60,
	}
}

// Validate surfaces configuration errors before any work is scheduled.
func (p Params) Validate() error {
	if p.Range.IsEmpty() {
		return errs.New(errs.Validation, "search range is empty")
	}
	if p.Mode >= numModes {
		return errs.Newf(errs.Validation, "unknown mode %d", p.Mode)
	}
	if p.KeyType >= numKeyTypes {
		return errs.Newf(errs.Validation, "unknown key type %d", p.KeyType)
	}
	if p.KFactor < 1 {
		return errs.New(errs.Validation, "k factor must be >= 1")
	}
	if p.NumThreads < 0 {
		return errs.New(errs.Validation, "thread count must be >= 0")
	}
	if p.BloomBitsPerElement < 1 {
		return errs.New(errs.Validation, "bloom bits per element must be >= 1")
	}
	if p.BloomHashFunctions < 1 {
		return errs.New(errs.Validation, "bloom hash function count must be >= 1")
	}
	if p.M == 0 {
		return errs.New(errs.Validation, "batch table size m must be nonzero")
	}
	if p.CheckpointEnabled && p.CheckpointPath == "" {
		return errs.New(errs.Validation, "checkpointing enabled without a path")
	}
	for i, w := range p.DeviceWeights {
		if w < 0 {
			return errs.Newf(errs.Validation, "device weight %d is negative", i)
		}
	}
	return nil
}

// stride returns the effective stride, treating 0 as 1.
func (p Params) stride() uint64 {
	if p.Stride == 0 {
		return 1
	}
	return p.Stride
}

// batchSize bounds the per-task candidate batch, honoring MaxMemoryMB.
func (p Params) batchSize() int {
	n := p.M
	if n > 1<<16 {
		// A batch is a pool task; cap it so pause and stop stay responsive.
		n = 1 << 16
	}
	if p.MaxMemoryMB > 0 {
		// Each buffered candidate costs 32 bytes.
		maxN := p.MaxMemoryMB * (1 << 20) / 32
		if maxN > 0 && n > maxN {
			n = maxN
		}
	}
	if n == 0 {
		n = 1
	}
	return int(n)
}
