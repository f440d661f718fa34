package uint256

import "errors"

var (
	ErrBitCount    = errors.New("uint256: bit count must be in 1..256")
	ErrEmptyRange  = errors.New("uint256: range is empty")
	ErrZeroParts   = errors.New("uint256: cannot split into zero parts")
	ErrZeroChunk   = errors.New("uint256: chunk width must be nonzero")
	ErrZeroWeights = errors.New("uint256: weights must contain a positive entry")
)

// Range is the inclusive key interval [Start, End]. A Range with Start > End
// is empty.
type Range struct {
	Start Uint256
	End   Uint256
}

// NewRange returns the inclusive range [start, end].
func NewRange(start, end Uint256) Range {
	return Range{Start: start, End: end}
}

// ForBits returns the range of values whose highest set bit is exactly
// bits-1, that is [2^(bits-1), 2^bits - 1]. bits must be in 1..256.
func ForBits(bits uint) (Range, error) {
	if bits < 1 || bits > 256 {
		return Range{}, ErrBitCount
	}
	var r Range
	r.Start.SetBit(bits-1, true)
	for i := range bits {
		r.End.SetBit(i, true)
	}
	return r, nil
}

// IsEmpty reports whether the range contains no keys.
func (r Range) IsEmpty() bool { return r.End.Less(r.Start) }

// Width returns End - Start + 1 and a carry flag. The carry is set only for
// the full domain [0, 2^256-1], whose width does not fit in 256 bits.
func (r Range) Width() (Uint256, bool) {
	if r.IsEmpty() {
		return Uint256{}, false
	}
	w, c := r.End.Sub(r.Start).CheckedAdd(New(1))
	return w, c == 1
}

// Width64 returns the width clamped to uint64, useful for small ranges and
// progress accounting. Widths that exceed 64 bits saturate.
func (r Range) Width64() uint64 {
	w, carry := r.Width()
	if carry || w.HighestBit() >= 64 {
		return ^uint64(0)
	}
	return w.Limb(0)
}

// Contains reports Start <= key <= End.
func (r Range) Contains(key Uint256) bool {
	return !key.Less(r.Start) && !r.End.Less(key)
}

// Hex renders the range as start:end for logs.
func (r Range) Hex() string { return r.Start.Hex() + ":" + r.End.Hex() }

// Split partitions the range into at most n contiguous parts covering it
// exactly with no overlap. If the range holds fewer than n keys, one
// singleton range per key is returned. The remainder of an uneven division
// goes one key at a time to the leading parts.
func (r Range) Split(n uint64) ([]Range, error) {
	if n == 0 {
		return nil, ErrZeroParts
	}
	if r.IsEmpty() {
		return nil, ErrEmptyRange
	}
	width, carry := r.Width()
	if carry && n == 1 {
		// The full domain is its own single part; its width has no
		// 256-bit representation to divide.
		return []Range{r}, nil
	}
	// A narrow range degenerates to singletons.
	if !carry && width.HighestBit() < 64 && width.Limb(0) < n {
		n = width.Limb(0)
	}
	q, rem := divWidth(width, carry, n)

	parts := make([]Range, 0, n)
	cursor := r.Start
	for i := uint64(0); i < n; i++ {
		w := q
		if i < rem {
			w = w.AddUint64(1)
		}
		// end = cursor + w - 1
		end := cursor.Add(w).Sub(New(1))
		parts = append(parts, Range{Start: cursor, End: end})
		cursor = end.AddUint64(1)
	}
	return parts, nil
}

// divWidth divides a possibly 257-bit width (value, carry) by n.
func divWidth(w Uint256, carry bool, n uint64) (q Uint256, rem uint64) {
	if !carry {
		return w.DivMod64(n)
	}
	// The only 257-bit width is 2^256 exactly (w == 0, carry set).
	// 2^256 = (2^256 - 1) / n * n + ((2^256 - 1) mod n + 1), adjusted when
	// the remainder reaches n.
	max := Uint256{limbs: [NumLimbs]uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}}
	q, r := max.DivMod64(n)
	r++
	if r == n {
		return q.AddUint64(1), 0
	}
	return q, r
}

// SplitByChunk emits consecutive ranges of exactly chunk keys; the final
// range may be shorter. The chunk count must fit the caller's memory: a
// range of 2^256 keys with a small chunk is unrepresentable as a slice.
func (r Range) SplitByChunk(chunk uint64) ([]Range, error) {
	if chunk == 0 {
		return nil, ErrZeroChunk
	}
	if r.IsEmpty() {
		return nil, ErrEmptyRange
	}
	var parts []Range
	cursor := r.Start
	step := New(chunk - 1)
	for {
		end := cursor.Add(step)
		// Clamp the final chunk, and detect wrap past End.
		if r.End.Less(end) || end.Less(cursor) {
			end = r.End
		}
		parts = append(parts, Range{Start: cursor, End: end})
		if end.Equal(r.End) {
			return parts, nil
		}
		cursor = end.AddUint64(1)
	}
}

// SplitForDevices partitions the range proportionally to the positive
// weights, absorbing rounding error into the last piece. Non-positive
// weights receive an empty share.
func (r Range) SplitForDevices(weights []float64) ([]Range, error) {
	if r.IsEmpty() {
		return nil, ErrEmptyRange
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return nil, ErrZeroWeights
	}

	width, carry := r.Width()
	parts := make([]Range, 0, len(weights))
	cursor := r.Start
	for i, w := range weights {
		if w <= 0 {
			parts = append(parts, Range{Start: New(1), End: New(0)})
			continue
		}
		var share Uint256
		if i == len(weights)-1 {
			// Everything that remains, including rounding error.
			share = r.End.Sub(cursor).AddUint64(1)
		} else {
			share = scaleWidth(width, carry, w/total)
			if share.IsZero() {
				share = New(1)
			}
			// Never run past the end; trailing devices then get empty shares.
			remaining := r.End.Sub(cursor).AddUint64(1)
			if remaining.Less(share) {
				share = remaining
			}
		}
		end := cursor.Add(share).Sub(New(1))
		parts = append(parts, Range{Start: cursor, End: end})
		if end.Equal(r.End) {
			// Exhausted: any later devices get empty ranges.
			for j := i + 1; j < len(weights); j++ {
				parts = append(parts, Range{Start: New(1), End: New(0)})
			}
			return parts, nil
		}
		cursor = end.AddUint64(1)
	}
	// Trailing non-positive weights may leave the tail uncovered; fold it
	// into the last non-empty part.
	last := len(parts) - 1
	for last >= 0 && parts[last].IsEmpty() {
		last--
	}
	if last >= 0 {
		parts[last].End = r.End
	}
	return parts, nil
}

// scaleWidth returns approximately width*frac. Precision beyond the top 64
// bits of the width is not required; split remainders are absorbed by the
// final device share.
func scaleWidth(w Uint256, carry bool, frac float64) Uint256 {
	if carry {
		// 2^256: halve first, scale, double.
		half := Uint256{}
		half.SetBit(255, true)
		return scaleWidth(half, false, frac).Lsh(1)
	}
	hb := w.HighestBit()
	if hb < 64 {
		return New(uint64(float64(w.Limb(0)) * frac))
	}
	// Scale the top 64 bits and shift back up.
	shift := uint(hb - 63)
	top := w.Rsh(shift).Limb(0)
	return New(uint64(float64(top) * frac)).Lsh(shift)
}

// OptimalChunk chooses a per-work-unit width so that a unit lasts roughly
// targetSeconds on one worker, clamped to [2^20, 2^40].
func OptimalChunk(r Range, workers uint64, targetSeconds uint64) uint64 {
	const (
		minChunk = uint64(1) << 20
		maxChunk = uint64(1) << 40
	)
	if workers == 0 {
		workers = 1
	}
	if targetSeconds == 0 {
		targetSeconds = 1
	}
	per, carry := r.Width()
	if carry {
		return maxChunk
	}
	per, _ = per.DivMod64(workers)
	per, _ = per.DivMod64(targetSeconds)
	if per.HighestBit() >= 64 {
		return maxChunk
	}
	chunk := per.Limb(0)
	if chunk < minChunk {
		return minChunk
	}
	if chunk > maxChunk {
		return maxChunk
	}
	return chunk
}
