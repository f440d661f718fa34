package checkpoint

import (
	"github.com/keyquarry/go-keyquarry/uint256"
)

// SchemaVersion is the current snapshot schema.
const SchemaVersion uint32 = 1

// UnitState is one work unit's identity and range, serialized big-endian.
type UnitState struct {
	ID    uint64 `cbor:"1,keyasint"`
	Start []byte `cbor:"2,keyasint"`
	End   []byte `cbor:"3,keyasint"`
}

// NewUnitState captures a unit for serialization.
func NewUnitState(id uint64, r uint256.Range) UnitState {
	start := r.Start.Bytes()
	end := r.End.Bytes()
	return UnitState{ID: id, Start: start[:], End: end[:]}
}

// Range reconstructs the unit's key range.
func (u UnitState) Range() uint256.Range {
	var start, end [32]byte
	copy(start[:], u.Start)
	copy(end[:], u.End)
	return uint256.NewRange(uint256.FromBytes(start), uint256.FromBytes(end))
}

// IDSpan is a run of consecutive completed unit ids.
type IDSpan struct {
	First uint64 `cbor:"1,keyasint"`
	Count uint64 `cbor:"2,keyasint"`
}

// ResultRecord is a confirmed hit carried across restarts.
type ResultRecord struct {
	PrivateKey []byte `cbor:"1,keyasint"`
	TargetHash []byte `cbor:"2,keyasint"`
	Address    string `cbor:"3,keyasint"`
	// FoundAt is unix milliseconds at discovery.
	FoundAt int64 `cbor:"4,keyasint"`
}

// Snapshot is the serialized coordinator frontier. Produced under a read
// lock on the coordinator; assignment state is discarded by design.
type Snapshot struct {
	RangeStart []byte `cbor:"1,keyasint"`
	RangeEnd   []byte `cbor:"2,keyasint"`
	UnitWidth  uint64 `cbor:"3,keyasint"`
	NextID     uint64 `cbor:"4,keyasint"`

	Pending    []UnitState `cbor:"5,keyasint"`
	InProgress []UnitState `cbor:"6,keyasint"`
	Completed  []IDSpan    `cbor:"7,keyasint"`

	Results []ResultRecord `cbor:"8,keyasint"`

	// FilterDigest is the SHA-256 of the filter's serialized form (header
	// and bit vector), not the filter itself; the resuming process rebuilds
	// the filter from its targets.
	FilterDigest []byte `cbor:"9,keyasint"`

	// CreatedAt is unix milliseconds at snapshot time.
	CreatedAt int64 `cbor:"10,keyasint"`
}

// SetRange records the original search range.
func (s *Snapshot) SetRange(r uint256.Range) {
	start := r.Start.Bytes()
	end := r.End.Bytes()
	s.RangeStart = start[:]
	s.RangeEnd = end[:]
}

// Range reconstructs the original search range.
func (s *Snapshot) Range() uint256.Range {
	var start, end [32]byte
	copy(start[:], s.RangeStart)
	copy(end[:], s.RangeEnd)
	return uint256.NewRange(uint256.FromBytes(start), uint256.FromBytes(end))
}

// ResumeUnits returns the union of pending and in-progress units, the set
// a resuming coordinator must still enumerate. Assignments are dropped.
func (s *Snapshot) ResumeUnits() []UnitState {
	out := make([]UnitState, 0, len(s.Pending)+len(s.InProgress))
	out = append(out, s.Pending...)
	out = append(out, s.InProgress...)
	return out
}

// CompletedIDs expands the run-length encoded completed set.
func (s *Snapshot) CompletedIDs() []uint64 {
	return ExpandIDSpans(s.Completed)
}
