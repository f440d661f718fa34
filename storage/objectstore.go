package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: object not found")

// ObjectReader reads whole objects by name.
type ObjectReader interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// ObjectWriter replaces whole objects by name. Put must be atomic with
// respect to concurrent Gets: a reader sees the old object or the new one,
// never a torn write.
type ObjectWriter interface {
	Put(ctx context.Context, name string, data []byte) error
}

// ObjectStore combines the read and write halves.
type ObjectStore interface {
	ObjectReader
	ObjectWriter
}
