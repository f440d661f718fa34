package bloom

/*

# Probabilistic membership prefilter (classic, cascading, partitioned, counting)

This package provides the hot-path prefilter used to test candidate key
hashes against a large target set. It follows a few conventions:

- small, composable functions
- explicit byte layouts for everything persisted
- a burden of knowledge on the caller for hot paths

## What the filters are (and are not)

A membership filter answers "definitely not present" or "maybe present".
False positives are permitted and are re-checked against the exact target
set by the caller. False negatives are forbidden: any value added is always
reported present. The filters are an I/O and CPU optimization, not a
membership proof.

## Variants

- Filter: the classic single bit vector. Adds take one mutex; queries read
  without locking. The only concurrent races are bit-sets of bytes already
  being read, which can only turn a "definitely not" into a "maybe" for a
  value that was genuinely added. That is the monotone invariant the caller
  relies on.
- Cascade: a sequence of filters of geometrically decreasing capacity. A
  value is present only if every level accepts, so the combined false
  positive rate is roughly the product of the per-level rates.
- Partitioned: P independent sub-filters selected by a hash of the key
  modulo P, each with its own mutex, so adds in distinct partitions never
  contend.
- Counting: a b-bit saturating counter per position, supporting removal.
  A value whose insertion saturated the minimum of its counters is stuck:
  it can no longer be removed. That is a property of the format, not a bug.

## Hashing and index derivation (family version 1)

The k positions for a key derive from one 64-bit murmur3 base digest. The
i'th position is (base * (golden + 2i)) mod m, where golden is the odd
64-bit golden ratio constant 0x9E3779B97F4A7C15. Multiplication by an odd
constant permutes the 64-bit space, so the k probes decorrelate without
rehashing the key.

The serialized format commits to this family: a filter loaded from disk
produces bit positions identical to the filter that wrote it.

## Persistence (format version 1)

Fixed little-endian header, magic "BLM1":

	+--------+-------+--------------------------------+
	| offset | width | field                          |
	+--------+-------+--------------------------------+
	|      0 |     4 | magic "BLM1"                   |
	|      4 |     1 | variant {classic=1,counting=2} |
	|      5 |     1 | counter bits (0 if classic)    |
	|      6 |     2 | reserved (0)                   |
	|      8 |     8 | m (bits or counters)           |
	|     16 |     8 | k (hash count)                 |
	|     24 |     8 | items added                    |
	|     32 |     8 | payload length (bytes)         |
	|     40 |   ... | payload                        |
	+--------+-------+--------------------------------+

Load fails closed: magic mismatch, unsupported variant, or a truncated
payload produce an error, never a partially constructed filter. Cascades
persist one file per level, named <base>.<level>.

*/
