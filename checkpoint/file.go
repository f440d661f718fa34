package checkpoint

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"

	"github.com/keyquarry/go-keyquarry/storage"
)

const (
	Magic = "KQCP"

	// headerBytes = magic(4) + version(4) + payload length(8).
	headerBytes = 16
)

var (
	ErrBadMagic         = errors.New("checkpoint: header magic invalid")
	ErrBadVersion       = errors.New("checkpoint: unsupported schema version")
	ErrTruncated        = errors.New("checkpoint: payload truncated")
	ErrChecksumMismatch = errors.New("checkpoint: filter digest does not match the current filter")
)

// Encode renders the snapshot into the framed on-disk form.
func Encode(codec CBORCodec, snap *Snapshot) ([]byte, error) {
	payload, err := codec.MarshalCBOR(snap)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerBytes+len(payload))
	copy(out[0:4], Magic)
	binary.LittleEndian.PutUint32(out[4:8], SchemaVersion)
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(payload)))
	copy(out[headerBytes:], payload)
	return out, nil
}

// Decode parses a framed snapshot, failing closed on any malformation.
func Decode(codec CBORCodec, data []byte) (*Snapshot, error) {
	if len(data) < headerBytes {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[0:4], []byte(Magic)) {
		return nil, ErrBadMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != SchemaVersion {
		return nil, ErrBadVersion
	}
	payloadLen := binary.LittleEndian.Uint64(data[8:16])
	if uint64(len(data)-headerBytes) < payloadLen {
		return nil, ErrTruncated
	}
	var snap Snapshot
	if err := codec.UnmarshalCBOR(data[headerBytes:headerBytes+int(payloadLen)], &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes the snapshot to path atomically: temp file, fsync, rename.
func Save(codec CBORCodec, path string, snap *Snapshot) error {
	data, err := Encode(codec, snap)
	if err != nil {
		return err
	}
	return storage.AtomicWriteFile(path, data)
}

// Load reads a snapshot from path.
func Load(codec CBORCodec, path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(codec, data)
}

// SaveTo writes the snapshot through an object store.
func SaveTo(ctx context.Context, codec CBORCodec, store storage.ObjectWriter, name string, snap *Snapshot) error {
	data, err := Encode(codec, snap)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// LoadFrom reads a snapshot through an object store.
func LoadFrom(ctx context.Context, codec CBORCodec, store storage.ObjectReader, name string) (*Snapshot, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decode(codec, data)
}
