package storage

import (
	"context"
	"io"

	azStorageBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/datatrails/go-datatrails-common/azblob"
)

// blobReaderWriter is the narrow azblob surface we depend on.
type blobReaderWriter interface {
	Reader(ctx context.Context, identity string, opts ...azblob.Option) (*azblob.ReaderResponse, error)
	Put(ctx context.Context, identity string, source io.ReadSeekCloser, opts ...azblob.Option) (*azblob.WriteResponse, error)
}

// BlobStore adapts an azure blob container to ObjectStore. Names map to
// blob paths under the configured prefix.
type BlobStore struct {
	store  blobReaderWriter
	prefix string
}

// NewBlobStore wraps an azblob store. prefix, if nonempty, should end with
// a path separator.
func NewBlobStore(store blobReaderWriter, prefix string) *BlobStore {
	return &BlobStore{store: store, prefix: prefix}
}

func (s *BlobStore) path(name string) string { return s.prefix + name }

func (s *BlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	rr, err := s.store.Reader(ctx, s.path(name))
	if err != nil {
		if isBlobNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return io.ReadAll(rr.Reader)
}

func (s *BlobStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.store.Put(ctx, s.path(name), azblob.NewBytesReaderCloser(data))
	return err
}

const azblobBlobNotFound = "BlobNotFound"

// isBlobNotFound recognizes the azure sdk blob-not-found error shape.
func isBlobNotFound(err error) bool {
	if err == nil {
		return false
	}
	serr := &azStorageBlob.StorageError{}
	ierr, ok := err.(*azStorageBlob.InternalError)
	if ierr == nil || !ok {
		return false
	}
	if !ierr.As(&serr) {
		return false
	}
	return serr.ErrorCode == azblobBlobNotFound
}
