package bloom

import "github.com/spaolacci/murmur3"

// golden is the odd 64-bit golden ratio constant used to derive the k probe
// positions from one base digest.
const golden = 0x9E3779B97F4A7C15

// partitionSeed decorrelates the partition selector from the probe digest.
const partitionSeed = 0xB10F

// baseDigest is the single 64-bit digest all probe positions derive from.
func baseDigest(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// probe returns the i'th bit position for a base digest in a filter of m
// positions. Multiplying by a distinct odd constant permutes the 64-bit
// space per probe index.
func probe(base uint64, i uint32, m uint64) uint64 {
	return (base * (golden + 2*uint64(i))) % m
}

// partitionIndex selects the sub-filter for a key in a partitioned filter.
func partitionIndex(data []byte, p uint64) uint64 {
	return murmur3.Sum64WithSeed(data, partitionSeed) % p
}
