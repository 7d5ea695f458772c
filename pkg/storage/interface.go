package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Read when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Object is an opened stored object. Size is -1 when the backend does not
// report it. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Storage is a flat key/value object store.
type Storage interface {
	// Write stores the reader's content under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read opens the object stored under key.
	Read(ctx context.Context, key string) (*Object, error)

	// Delete removes a single object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// New builds the storage named by driver: "local" (the default) or "s3".
func New(ctx context.Context, driver string, local LocalConfig, s3 S3Config) (Storage, error) {
	switch driver {
	case "", "local":
		return NewLocalStorage(local)
	case "s3":
		return NewS3Storage(ctx, s3)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
