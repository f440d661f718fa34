package bloom

import "math"

// SizeFor derives (m, k) from the expected item count and the target false
// positive rate:
//
//	m = ceil(-n * ln p / (ln 2)^2)
//	k = ceil((m / n) * ln 2)
func SizeFor(expectedItems uint64, fpRate float64) (m uint64, k uint32, err error) {
	if expectedItems == 0 || fpRate <= 0 || fpRate >= 1 {
		return 0, 0, ErrBadParams
	}
	ln2 := math.Ln2
	mf := math.Ceil(-float64(expectedItems) * math.Log(fpRate) / (ln2 * ln2))
	m = uint64(mf)
	if m == 0 {
		m = 1
	}
	k = uint32(math.Ceil(mf / float64(expectedItems) * ln2))
	if k == 0 {
		k = 1
	}
	return m, k, nil
}

// ExpectedFPRate returns the theoretical false positive rate for a filter of
// m bits and k hashes holding n items: (1 - e^(-kn/m))^k.
func ExpectedFPRate(m uint64, k uint32, n uint64) float64 {
	if m == 0 || n == 0 {
		return 0
	}
	return math.Pow(1-math.Exp(-float64(k)*float64(n)/float64(m)), float64(k))
}

// bitsetBytes returns ceil(m/8).
func bitsetBytes(m uint64) uint64 { return (m + 7) / 8 }

// counterBytes returns ceil(m*b/8) for m counters of b bits.
func counterBytes(m uint64, b uint8) uint64 { return (m*uint64(b) + 7) / 8 }
