package search

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/uint256"
)

// KeyDeriver produces both public key serializations for a private key.
// Implementations must be deterministic, thread-safe and reentrant.
type KeyDeriver interface {
	Derive(priv uint256.PrivateKey) (uint256.PublicKey, uint256.CompressedPublicKey, error)
}

// SecpDeriver derives secp256k1 public keys. The zero value is ready.
type SecpDeriver struct{}

// Derive returns the uncompressed and compressed serializations of
// priv * G. The zero scalar has no public key and is rejected.
func (SecpDeriver) Derive(priv uint256.PrivateKey) (uint256.PublicKey, uint256.CompressedPublicKey, error) {
	if priv.IsZero() {
		return uint256.PublicKey{}, uint256.CompressedPublicKey{},
			errs.New(errs.Crypto, "zero scalar has no public key")
	}
	_, pub := btcec.PrivKeyFromBytes(priv[:])
	var u uint256.PublicKey
	var c uint256.CompressedPublicKey
	copy(u[:], pub.SerializeUncompressed())
	copy(c[:], pub.SerializeCompressed())
	return u, c, nil
}

// Sha256 returns the SHA-256 digest of b.
func Sha256(b []byte) uint256.Hash256 {
	return uint256.Hash256(sha256.Sum256(b))
}

// Ripemd160 returns the RIPEMD-160 digest of b.
func Ripemd160(b []byte) uint256.Hash160 {
	h := ripemd160.New()
	h.Write(b)
	var out uint256.Hash160
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 returns RIPEMD-160(SHA-256(b)), the address payload digest.
func Hash160(b []byte) uint256.Hash160 {
	var out uint256.Hash160
	copy(out[:], btcutil.Hash160(b))
	return out
}

// Keccak256 returns the legacy Keccak-256 digest of b.
func Keccak256(b []byte) uint256.Hash256 {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	var out uint256.Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// Address version bytes for Base58Check payloads.
const (
	VersionP2PKH        = 0x00
	VersionP2PKHTestnet = 0x6F
)

// EncodeP2PKH renders a hash160 as a Base58Check address under version.
func EncodeP2PKH(h uint256.Hash160, version byte) string {
	return base58.CheckEncode(h[:], version)
}

// EncodeP2WPKH renders a hash160 as a native SegWit v0 address (bc1q/tb1q).
func EncodeP2WPKH(h uint256.Hash160, testnet bool) (string, error) {
	params := &chaincfg.MainNetParams
	if testnet {
		params = &chaincfg.TestNet3Params
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(h[:], params)
	if err != nil {
		return "", errs.Wrap(errs.Crypto, "encoding segwit address", err)
	}
	return addr.EncodeAddress(), nil
}

// DecodeAddress extracts the version and hash160 payload from a Base58Check
// or Bech32 address. Unsupported or malformed addresses return a Parse
// error, never a partial value.
func DecodeAddress(s string) (byte, uint256.Hash160, error) {
	// Base58Check first: covers P2PKH on both networks.
	if payload, version, err := base58.CheckDecode(s); err == nil {
		if len(payload) != 20 {
			return 0, uint256.Hash160{}, errs.Newf(errs.Parse, "address %q payload is %d bytes", s, len(payload))
		}
		var h uint256.Hash160
		copy(h[:], payload)
		return version, h, nil
	}

	for _, params := range []*chaincfg.Params{&chaincfg.MainNetParams, &chaincfg.TestNet3Params} {
		addr, err := btcutil.DecodeAddress(s, params)
		if err != nil {
			continue
		}
		if wpkh, ok := addr.(*btcutil.AddressWitnessPubKeyHash); ok {
			var h uint256.Hash160
			copy(h[:], wpkh.Hash160()[:])
			return params.PubKeyHashAddrID, h, nil
		}
		// Taproot and script-hash forms carry no hash160 target.
		return 0, uint256.Hash160{}, errs.Newf(errs.Parse, "address %q is not a pubkey-hash form", s)
	}
	return 0, uint256.Hash160{}, errs.Newf(errs.Parse, "unrecognized address %q", s)
}
