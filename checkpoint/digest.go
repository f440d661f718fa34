package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/keyquarry/go-keyquarry/bloom"
)

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// FilterDigest returns the SHA-256 of the filter's serialized form. The
// checkpoint stores this digest rather than the filter: the resuming
// process rebuilds the filter from its target set and proves equivalence
// by digest.
func FilterDigest(f interface {
	WriteTo(io.Writer) (int64, error)
}) ([]byte, error) {
	h := sha256.New()
	if _, err := f.WriteTo(h); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// VerifyFilterDigest checks a snapshot's recorded digest against the
// filter the resuming coordinator built.
func VerifyFilterDigest(snap *Snapshot, f *bloom.Filter) error {
	digest, err := FilterDigest(f)
	if err != nil {
		return err
	}
	if !bytes.Equal(digest, snap.FilterDigest) {
		return ErrChecksumMismatch
	}
	return nil
}
