// Package storage defines the Backend interface for object storage used by
// project snapshots.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Backend is the interface for object storage backends.
// Missing objects are reported with errors wrapping fs.ErrNotExist.
type Backend interface {
	// GetObject retrieves a whole object and its size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject uploads content to the given key, replacing any object there.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object by key.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// ListObjects returns the objects whose key starts with prefix.
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Type returns the backend type identifier ("s3", "local").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
