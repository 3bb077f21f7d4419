// Package local provides a local file system implementation of the storage adapter interfaces.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// ProviderType is the location type served by this adapter.
const ProviderType = "local filesystem"

// localAdapter implements storage.StorageConnection for the local file system.
type localAdapter struct{}

// Verify that localAdapter implements the storage.StorageConnection interface.
var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a new local file system adapter.
func NewLocalAdapter() storageAdapter.StorageConnection {
	return &localAdapter{}
}

// Type returns "local filesystem".
func (a *localAdapter) Type() string {
	return ProviderType
}

// Close does nothing for the local file system adapter as it holds no special resources.
func (a *localAdapter) Close() error {
	return nil
}

// ListObjects lists the regular files directly inside the directory prefix.
// bucket is ignored. Entries are visited in name order.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	entries, err := os.ReadDir(prefix)
	if err != nil {
		return fmt.Errorf("failed to read directory '%s': %w", prefix, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := fn(entry.Name()); err != nil {
			return err
		}
	}
	logger.Debugf("Listed %d entries in '%s' (local adapter).", len(entries), prefix)
	return nil
}

// Exists reports whether the file objectName exists. bucket, when not empty,
// is treated as the directory holding objectName.
func (a *localAdapter) Exists(ctx context.Context, bucket, objectName string) (bool, error) {
	path := objectName
	if bucket != "" {
		path = filepath.Join(bucket, objectName)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	return !info.IsDir(), nil
}

// Module is the Fx module for the local storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalAdapter,
		fx.ResultTags(`group:"storage_connections"`),
	)),
)
