// Package storage defines the interface through which the tracker enumerates
// and checks the files behind a Location. Adapters exist for the local file
// system and for S3; each registers under the location type it serves.
package storage

import (
	"context"
)

// StorageExecutor defines the read-only storage operations the tracker needs.
type StorageExecutor interface {
	// ListObjects lists the objects under prefix in bucket and calls fn with
	// the name of each object relative to prefix. For local storage bucket is
	// empty and prefix is a directory path.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// Exists reports whether objectName exists in bucket.
	Exists(ctx context.Context, bucket, objectName string) (bool, error)
}

// StorageConnection is a storage backend serving one location type.
type StorageConnection interface {
	StorageExecutor

	// Type returns the location type served, e.g. "local filesystem" or "s3".
	Type() string
	// Close releases the resources held by the connection.
	Close() error
}
