package uint256

import (
	"errors"
	"math/bits"
	"strings"
)

// NumLimbs is the number of 64-bit limbs in a Uint256.
const NumLimbs = 4

var (
	ErrHexLength = errors.New("uint256: hex string longer than 64 nybbles")
	ErrHexDigit  = errors.New("uint256: invalid hex digit")
)

// Uint256 is an unsigned 256-bit integer stored as little-endian limbs:
// limbs[0] holds bits 0..63, limbs[3] holds bits 192..255.
type Uint256 struct {
	limbs [NumLimbs]uint64
}

// New returns a Uint256 holding a single 64-bit value.
func New(v uint64) Uint256 {
	return Uint256{limbs: [NumLimbs]uint64{v}}
}

// Limb returns limb i. The caller must ensure i < NumLimbs.
func (u Uint256) Limb(i int) uint64 { return u.limbs[i] }

// SetLimb sets limb i. The caller must ensure i < NumLimbs.
func (u *Uint256) SetLimb(i int, v uint64) { u.limbs[i] = v }

// IsZero reports whether u == 0.
func (u Uint256) IsZero() bool {
	return u.limbs[0]|u.limbs[1]|u.limbs[2]|u.limbs[3] == 0
}

// Cmp returns -1, 0 or 1 as u is less than, equal to, or greater than v.
func (u Uint256) Cmp(v Uint256) int {
	for i := NumLimbs - 1; i >= 0; i-- {
		if u.limbs[i] < v.limbs[i] {
			return -1
		}
		if u.limbs[i] > v.limbs[i] {
			return 1
		}
	}
	return 0
}

// Equal reports u == v.
func (u Uint256) Equal(v Uint256) bool { return u.limbs == v.limbs }

// Less reports u < v.
func (u Uint256) Less(v Uint256) bool { return u.Cmp(v) < 0 }

// Add returns u + v modulo 2^256. The carry out of the top limb is dropped.
func (u Uint256) Add(v Uint256) Uint256 {
	r, _ := u.CheckedAdd(v)
	return r
}

// CheckedAdd returns u + v modulo 2^256 and the carry out of the top limb.
func (u Uint256) CheckedAdd(v Uint256) (Uint256, uint64) {
	var r Uint256
	var c uint64
	r.limbs[0], c = bits.Add64(u.limbs[0], v.limbs[0], 0)
	r.limbs[1], c = bits.Add64(u.limbs[1], v.limbs[1], c)
	r.limbs[2], c = bits.Add64(u.limbs[2], v.limbs[2], c)
	r.limbs[3], c = bits.Add64(u.limbs[3], v.limbs[3], c)
	return r, c
}

// Sub returns u - v. The caller must ensure u >= v; the borrow out of the
// top limb is dropped.
func (u Uint256) Sub(v Uint256) Uint256 {
	var r Uint256
	var b uint64
	r.limbs[0], b = bits.Sub64(u.limbs[0], v.limbs[0], 0)
	r.limbs[1], b = bits.Sub64(u.limbs[1], v.limbs[1], b)
	r.limbs[2], b = bits.Sub64(u.limbs[2], v.limbs[2], b)
	r.limbs[3], _ = bits.Sub64(u.limbs[3], v.limbs[3], b)
	return r
}

// Inc increments u in place, wrapping at 2^256.
func (u *Uint256) Inc() {
	for i := range u.limbs {
		u.limbs[i]++
		if u.limbs[i] != 0 {
			return
		}
	}
}

// AddUint64 returns u + v modulo 2^256.
func (u Uint256) AddUint64(v uint64) Uint256 {
	return u.Add(New(v))
}

// Bit returns the bit at position pos (0..255). Positions >= 256 read as 0.
func (u Uint256) Bit(pos uint) bool {
	if pos >= 256 {
		return false
	}
	return (u.limbs[pos/64]>>(pos%64))&1 == 1
}

// SetBit sets or clears the bit at position pos. Positions >= 256 are ignored.
func (u *Uint256) SetBit(pos uint, on bool) {
	if pos >= 256 {
		return
	}
	if on {
		u.limbs[pos/64] |= 1 << (pos % 64)
	} else {
		u.limbs[pos/64] &^= 1 << (pos % 64)
	}
}

// HighestBit returns the position of the highest set bit, or -1 if u is zero.
func (u Uint256) HighestBit() int {
	for i := NumLimbs - 1; i >= 0; i-- {
		if u.limbs[i] != 0 {
			return i*64 + 63 - bits.LeadingZeros64(u.limbs[i])
		}
	}
	return -1
}

// DivMod64 returns (u / d, u mod d) for a 64-bit divisor. d must be nonzero.
func (u Uint256) DivMod64(d uint64) (Uint256, uint64) {
	var q Uint256
	var rem uint64
	for i := NumLimbs - 1; i >= 0; i-- {
		q.limbs[i], rem = bits.Div64(rem, u.limbs[i], d)
	}
	return q, rem
}

// Mul64 returns u * v modulo 2^256.
func (u Uint256) Mul64(v uint64) Uint256 {
	var r Uint256
	var hi, lo, c, carry uint64
	for i := range NumLimbs {
		hi, lo = bits.Mul64(u.limbs[i], v)
		r.limbs[i], c = bits.Add64(lo, carry, 0)
		carry = hi + c
	}
	return r
}

// Lsh returns u << n modulo 2^256.
func (u Uint256) Lsh(n uint) Uint256 {
	if n >= 256 {
		return Uint256{}
	}
	var r Uint256
	limbShift := int(n / 64)
	bitShift := n % 64
	for i := NumLimbs - 1; i >= limbShift; i-- {
		r.limbs[i] = u.limbs[i-limbShift] << bitShift
		if bitShift != 0 && i-limbShift-1 >= 0 {
			r.limbs[i] |= u.limbs[i-limbShift-1] >> (64 - bitShift)
		}
	}
	return r
}

// Rsh returns u >> n.
func (u Uint256) Rsh(n uint) Uint256 {
	if n >= 256 {
		return Uint256{}
	}
	var r Uint256
	limbShift := int(n / 64)
	bitShift := n % 64
	for i := 0; i < NumLimbs-limbShift; i++ {
		r.limbs[i] = u.limbs[i+limbShift] >> bitShift
		if bitShift != 0 && i+limbShift+1 < NumLimbs {
			r.limbs[i] |= u.limbs[i+limbShift+1] << (64 - bitShift)
		}
	}
	return r
}

// Bytes returns the big-endian 32-byte representation.
func (u Uint256) Bytes() [32]byte {
	var out [32]byte
	for i := range NumLimbs {
		limb := u.limbs[i]
		for j := range 8 {
			out[31-(i*8+j)] = byte(limb >> (j * 8))
		}
	}
	return out
}

// FromBytes decodes a big-endian 32-byte representation.
func FromBytes(b [32]byte) Uint256 {
	var u Uint256
	for i := range NumLimbs {
		var limb uint64
		for j := range 8 {
			limb |= uint64(b[31-(i*8+j)]) << (j * 8)
		}
		u.limbs[i] = limb
	}
	return u
}

// FromHex parses a hex string of up to 64 nybbles, with an optional 0x
// prefix, case-insensitive. Short strings are zero padded on the left.
// On failure the zero value and a non-nil error are returned, never a
// partial value.
func FromHex(s string) (Uint256, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) > 64 {
		return Uint256{}, ErrHexLength
	}
	var u Uint256
	// Walk from the least significant nybble so that short inputs land in
	// the low limbs without an explicit padding pass.
	for i := range len(s) {
		c := s[len(s)-1-i]
		d := hexDigit(c)
		if d < 0 {
			return Uint256{}, ErrHexDigit
		}
		u.limbs[i/16] |= uint64(d) << ((i % 16) * 4)
	}
	return u, nil
}

// Hex renders u as minimum-width lowercase hex with no 0x prefix. Zero
// renders as "0".
func (u Uint256) Hex() string {
	hb := u.HighestBit()
	if hb < 0 {
		return "0"
	}
	n := hb/4 + 1
	var sb strings.Builder
	sb.Grow(n)
	for i := n - 1; i >= 0; i-- {
		nyb := (u.limbs[i/16] >> ((i % 16) * 4)) & 0xF
		sb.WriteByte(hexChars[nyb])
	}
	return sb.String()
}

const hexChars = "0123456789abcdef"

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
