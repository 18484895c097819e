package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage abstracts the S3-compatible object store holding receipt
// files. Presigned URLs let clients transfer bytes directly against the
// store, so the application server never proxies file content.
type ObjectStorage interface {
	// PresignPut returns a time-boxed URL for a direct PUT of the object.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)

	// PresignGet returns a time-boxed URL for viewing the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Exists checks whether an object is present at the given key.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns a reader over the object content. Caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores content at the given key (server-side writes, thumbnails).
	Put(ctx context.Context, key, contentType string, reader io.Reader) error

	// Delete removes the object at the given key.
	Delete(ctx context.Context, key string) error
}
