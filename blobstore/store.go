// Package blobstore abstracts access to immutable model bundle files.
//
// The engine only ever reads bundles; writing them is the training
// pipeline's job. Implementations exist for the local filesystem, memory
// (tests), S3 and MinIO-compatible object storage.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading immutable data blobs (model bundles).
type Store interface {
	// Open opens a blob for reading. The caller must close it.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Reader
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// ReadAll opens the named blob and reads it fully.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	buf := make([]byte, 0, b.Size())
	tmp := make([]byte, 64<<10)
	for {
		n, err := b.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
