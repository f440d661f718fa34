package uint256

import (
	"bytes"
	"errors"
	"sync/atomic"
)

var ErrByteHexLength = errors.New("uint256: hex string does not match array width")

// Fixed-width byte vectors. Each is a distinct defined type so that values
// of one width or role cannot be passed where another is expected.
type (
	// PrivateKey is a 32-byte secp256k1 scalar.
	PrivateKey [32]byte
	// PublicKey is an uncompressed SEC point: 0x04 || X || Y.
	PublicKey [65]byte
	// CompressedPublicKey is a compressed SEC point: 0x02/0x03 || X.
	CompressedPublicKey [33]byte
	// Hash256 is a SHA-256 or Keccak-256 digest.
	Hash256 [32]byte
	// Hash160 is a RIPEMD-160(SHA-256) digest, the address payload.
	Hash160 [20]byte
	// AddressBytes is a 25-byte Base58Check payload: version || hash160 || checksum.
	AddressBytes [25]byte
)

// parseFixedHex fills dst from a hex string, accepting an optional 0x
// prefix. The string must supply exactly len(dst) bytes.
func parseFixedHex(dst []byte, s string) error {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != len(dst)*2 {
		return ErrByteHexLength
	}
	for i := range dst {
		hi := hexDigit(s[i*2])
		lo := hexDigit(s[i*2+1])
		if hi < 0 || lo < 0 {
			return ErrHexDigit
		}
		dst[i] = byte(hi<<4 | lo)
	}
	return nil
}

func renderFixedHex(src []byte) string {
	out := make([]byte, len(src)*2)
	for i, b := range src {
		out[i*2] = hexChars[b>>4]
		out[i*2+1] = hexChars[b&0xF]
	}
	return string(out)
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// zeroizeFence is the target of the ordering fence in Zeroize.
var zeroizeFence atomic.Uint32

// zeroize clears b in a way the compiler cannot elide: the byte stores are
// followed by one sequentially consistent atomic, which orders the stores
// before any later observation of the buffer.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	zeroizeFence.Add(1)
}

// PrivateKeyFromHex parses a 64-nybble hex private key.
func PrivateKeyFromHex(s string) (PrivateKey, error) {
	var k PrivateKey
	if err := parseFixedHex(k[:], s); err != nil {
		return PrivateKey{}, err
	}
	return k, nil
}

// PrivateKeyFromUint256 converts a scalar value to its 32-byte big-endian form.
func PrivateKeyFromUint256(u Uint256) PrivateKey {
	return PrivateKey(u.Bytes())
}

// Uint256 converts the key back to its scalar value.
func (k PrivateKey) Uint256() Uint256 { return FromBytes([32]byte(k)) }

func (k PrivateKey) Hex() string  { return renderFixedHex(k[:]) }
func (k PrivateKey) IsZero() bool { return allZero(k[:]) }

// Zeroize clears the key material; the write is not elided by the compiler.
func (k *PrivateKey) Zeroize() { zeroize(k[:]) }

// XOR returns k ^ o.
func (k PrivateKey) XOR(o PrivateKey) PrivateKey {
	var r PrivateKey
	xorInto(r[:], k[:], o[:])
	return r
}

// XORIn applies k ^= o in place.
func (k *PrivateKey) XORIn(o PrivateKey) { xorInto(k[:], k[:], o[:]) }

// Less is the lexicographic order, which for big-endian key material is the
// numeric order.
func (k PrivateKey) Less(o PrivateKey) bool { return bytes.Compare(k[:], o[:]) < 0 }

func Hash160FromHex(s string) (Hash160, error) {
	var h Hash160
	if err := parseFixedHex(h[:], s); err != nil {
		return Hash160{}, err
	}
	return h, nil
}

func (h Hash160) Hex() string { return renderFixedHex(h[:]) }
func (h Hash160) IsZero() bool { return allZero(h[:]) }
func (h Hash160) Less(o Hash160) bool { return bytes.Compare(h[:], o[:]) < 0 }
func (h *Hash160) Zeroize() { zeroize(h[:]) }

func Hash256FromHex(s string) (Hash256, error) {
	var h Hash256
	if err := parseFixedHex(h[:], s); err != nil {
		return Hash256{}, err
	}
	return h, nil
}

func (h Hash256) Hex() string         { return renderFixedHex(h[:]) }
func (h Hash256) IsZero() bool        { return allZero(h[:]) }
func (h Hash256) Less(o Hash256) bool { return bytes.Compare(h[:], o[:]) < 0 }
func (h *Hash256) Zeroize()           { zeroize(h[:]) }

func (p PublicKey) Hex() string  { return renderFixedHex(p[:]) }
func (p PublicKey) IsZero() bool { return allZero(p[:]) }
func (p *PublicKey) Zeroize()    { zeroize(p[:]) }

func (p CompressedPublicKey) Hex() string  { return renderFixedHex(p[:]) }
func (p CompressedPublicKey) IsZero() bool { return allZero(p[:]) }
func (p *CompressedPublicKey) Zeroize()    { zeroize(p[:]) }

func (a AddressBytes) Hex() string  { return renderFixedHex(a[:]) }
func (a AddressBytes) IsZero() bool { return allZero(a[:]) }
