package search

import (
	"math/rand"

	"github.com/keyquarry/go-keyquarry/uint256"
)

// sweeper enumerates the candidates of one work unit in the order the mode
// dictates. It is single-goroutine; each unit gets its own sweeper.
type sweeper struct {
	r      uint256.Range
	mode   Mode
	stride uint64

	// forward/backward cursors. done flips when the unit is exhausted.
	fwd  uint256.Uint256
	bwd  uint256.Uint256
	done bool
	// fromLow alternates ends for dance mode.
	fromLow bool

	// random state
	rng       *rand.Rand
	remaining uint64
	maskBits  int
}

func newSweeper(r uint256.Range, mode Mode, stride uint64, seed int64) *sweeper {
	if stride == 0 {
		stride = 1
	}
	s := &sweeper{
		r:       r,
		mode:    mode,
		stride:  stride,
		fwd:     r.Start,
		bwd:     r.End,
		done:    r.IsEmpty(),
		fromLow: true,
	}
	if mode == ModeRandom {
		s.rng = rand.New(rand.NewSource(seed))
		// One range-width worth of samples, with replacement.
		s.remaining = r.Width64() / stride
		if s.remaining == 0 {
			s.remaining = 1
		}
		w, carry := r.Width()
		if carry {
			s.maskBits = 256
		} else {
			s.maskBits = w.HighestBit() + 1
		}
	}
	return s
}

// next fills buf with up to len(buf) candidates and returns the count.
// Zero means the unit is exhausted.
func (s *sweeper) next(buf []uint256.Uint256) int {
	switch s.mode {
	case ModeRandom:
		return s.nextRandom(buf)
	case ModeBackward:
		return s.nextBackward(buf)
	case ModeBoth:
		return s.nextBoth(buf)
	case ModeDance:
		return s.nextAlternating(buf)
	default:
		return s.nextSequential(buf)
	}
}

// stepForward advances fwd by stride, flipping done when the cursor would
// pass End or wrap.
func (s *sweeper) stepForward() {
	rem := s.r.End.Sub(s.fwd)
	if rem.HighestBit() >= 64 || rem.Limb(0) >= s.stride {
		s.fwd = s.fwd.AddUint64(s.stride)
		return
	}
	s.done = true
}

// stepBackward mirrors stepForward for the high cursor.
func (s *sweeper) stepBackward() {
	rem := s.bwd.Sub(s.r.Start)
	if rem.HighestBit() >= 64 || rem.Limb(0) >= s.stride {
		s.bwd = s.bwd.Sub(uint256.New(s.stride))
		return
	}
	s.done = true
}

func (s *sweeper) nextSequential(buf []uint256.Uint256) int {
	n := 0
	for n < len(buf) && !s.done {
		buf[n] = s.fwd
		n++
		s.stepForward()
	}
	return n
}

func (s *sweeper) nextBackward(buf []uint256.Uint256) int {
	n := 0
	for n < len(buf) && !s.done {
		buf[n] = s.bwd
		n++
		s.stepBackward()
	}
	return n
}

// nextBoth drains the forward and backward cursors in equal halves of each
// batch, so both frontiers advance together until they meet.
func (s *sweeper) nextBoth(buf []uint256.Uint256) int {
	n := 0
	for n < len(buf) && !s.done {
		// Forward half.
		buf[n] = s.fwd
		n++
		if s.fwd.Equal(s.bwd) {
			s.done = true
			break
		}
		s.stepForward()
		if s.done || n == len(buf) {
			break
		}
		// Backward half.
		buf[n] = s.bwd
		n++
		if s.fwd.Equal(s.bwd) {
			s.done = true
			break
		}
		s.stepBackward()
		if s.bwd.Less(s.fwd) {
			s.done = true
		}
	}
	return n
}

// nextAlternating serves Dance: candidates are taken from the two ends in
// turn, walking inward until the cursors meet.
func (s *sweeper) nextAlternating(buf []uint256.Uint256) int {
	n := 0
	for n < len(buf) && !s.done {
		if s.fromLow {
			buf[n] = s.fwd
			n++
			if s.fwd.Equal(s.bwd) {
				s.done = true
				break
			}
			s.stepForward()
		} else {
			buf[n] = s.bwd
			n++
			if s.fwd.Equal(s.bwd) {
				s.done = true
				break
			}
			s.stepBackward()
		}
		s.fromLow = !s.fromLow
		// The cursors crossing ends the unit: both values were emitted.
		if s.bwd.Less(s.fwd) {
			s.done = true
		}
	}
	return n
}

// nextRandom samples uniformly within the unit by rejection over the
// smallest power-of-two mask covering the width.
func (s *sweeper) nextRandom(buf []uint256.Uint256) int {
	n := 0
	for n < len(buf) && s.remaining > 0 {
		buf[n] = s.randomInRange()
		n++
		s.remaining--
	}
	if s.remaining == 0 {
		s.done = true
	}
	return n
}

func (s *sweeper) randomInRange() uint256.Uint256 {
	for {
		var v uint256.Uint256
		for limb := 0; limb*64 < s.maskBits; limb++ {
			v.SetLimb(limb, s.rng.Uint64())
		}
		// Mask down to the covering power of two.
		if s.maskBits < 256 {
			drop := uint(256 - s.maskBits)
			v = v.Lsh(drop).Rsh(drop)
		}
		cand := s.r.Start.Add(v)
		if s.r.Contains(cand) {
			return cand
		}
	}
}
