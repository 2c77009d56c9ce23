package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by Get when nothing is stored under the key.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data stored with the given key
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether anything is stored with the given key
	Exists(ctx context.Context, key string) (bool, error)
	// Copy duplicates the object at src to dst byte for byte
	Copy(ctx context.Context, src string, dst string) error
	// MkdirAll prepares dir for writes. Calling it for an existing dir is not an error.
	MkdirAll(ctx context.Context, dir string) error
}

const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// New returns the storage backend named by backend.
func New(ctx context.Context, backend string, f FileConfig, s S3Config) (Storage, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStorage(ctx, f)
	case BackendS3:
		return NewS3Storage(ctx, s)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
