package checkpoint

import (
	"bytes"
	"crypto/rand"
	"errors"

	"github.com/veraison/go-cose"
)

var (
	ErrSealVerifyFailed = errors.New("checkpoint: seal signature verification failed")
	ErrSealDigest       = errors.New("checkpoint: sealed digest does not match the snapshot")
)

// SealPath returns the conventional location of a checkpoint's seal, next
// to the checkpoint itself.
func SealPath(checkpointPath string) string {
	return checkpointPath + ".seal"
}

// Sealer signs snapshot digests so a resumed state can be attributed to a
// trusted coordinator. The seal covers the digest of the framed snapshot
// bytes, not the snapshot itself, so the seal stays small and the snapshot
// file remains readable without COSE tooling.
type Sealer struct {
	issuer string
}

// NewSealer names the issuing coordinator; the name travels in the
// protected headers.
func NewSealer(issuer string) Sealer {
	return Sealer{issuer: issuer}
}

// Seal signs digest and returns the serialized COSE Sign1 envelope.
func (s Sealer) Seal(signer cose.Signer, digest []byte) ([]byte, error) {
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelContentType: "application/keyquarry-checkpoint-digest",
				"issuer":                    s.issuer,
			},
		},
		Payload: digest,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

// VerifySeal checks the envelope signature and that the sealed digest
// matches expect.
func VerifySeal(sealed []byte, verifier cose.Verifier, expect []byte) error {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sealed); err != nil {
		return err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return ErrSealVerifyFailed
	}
	if !bytes.Equal(msg.Payload, expect) {
		return ErrSealDigest
	}
	return nil
}

// SnapshotDigest computes the digest a seal covers: SHA-256 over the
// framed snapshot bytes.
func SnapshotDigest(codec CBORCodec, snap *Snapshot) ([]byte, error) {
	data, err := Encode(codec, snap)
	if err != nil {
		return nil, err
	}
	return sha256Sum(data), nil
}
