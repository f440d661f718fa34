package uint256

/*

# 256-bit key arithmetic and range algebra

This package provides the wide-integer primitive used for private key
enumeration, together with the inclusive key range algebra used to partition
a search window into work units.

It follows a few deliberate conventions:

- small, composable functions
- explicit byte layouts (big-endian on the wire, little-endian limbs in memory)
- a burden of knowledge on the caller for hot paths

## Uint256

A Uint256 is four 64-bit limbs in little-endian limb order, representing an
unsigned value in [0, 2^256). Addition is modulo 2^256: the carry out of the
top limb is dropped. Callers that need the overflow signal use CheckedAdd.
Subtraction requires a >= b; the caller is responsible for ordering the
operands.

## Key ranges

A Range is the inclusive pair [Start, End]. Width is End - Start + 1, which
can itself require 257 bits (the full domain) and is therefore reported as a
(Uint256, carry) pair by callers that need it exactly; Split and the chunked
variants only ever subdivide, so they stay within 256 bits.

Ranges split with no gaps and no overlap. The remainder of an uneven split is
distributed one element at a time to the leading parts, so part widths never
differ by more than one.

## Tagged byte vectors

PrivateKey, PublicKey, CompressedPublicKey, Hash256, Hash160 and AddressBytes
are distinct fixed-size array types so that a 32-byte hash cannot be passed
where a 32-byte private key is expected. They share hex codecs, XOR, ordering
and a Zeroize that survives compiler optimization.

*/
