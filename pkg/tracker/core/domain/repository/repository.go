// Package repository defines the metadata store contract used by the tracker engines.
package repository

import (
	"context"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
)

// MetadataStore is the gateway to the relational metadata store.
//
// Every method joins the transaction carried by ctx (see package tx) when one
// is present, so a high-level operation built from several calls commits or
// rolls back as a unit.
type MetadataStore interface {
	// FindOrCreate looks row up by its non-zero fields and loads the match into row.
	// A row without any non-zero field fails with InvalidName.
	// When nothing matches and create is true, row is inserted. When nothing
	// matches and create is false, a NotFound error is returned. More than one
	// match fails with Ambiguous. A concurrent insert of the same natural key is
	// resolved by retrying the lookup once.
	FindOrCreate(ctx context.Context, row interface{}, create bool) error

	// Find loads the rows matching query into dest, a pointer to a slice.
	Find(ctx context.Context, dest interface{}, query interface{}, orderBy string, limit int) error

	// Count counts the rows of model matching query.
	Count(ctx context.Context, model interface{}, query interface{}) (int64, error)

	// Create inserts row.
	Create(ctx context.Context, row interface{}) error

	// Update writes every column of row, identified by its primary key.
	Update(ctx context.Context, row interface{}) error

	// UpdateColumns writes only the named columns of the row identified by the
	// primary key of row. Other columns keep their stored values.
	UpdateColumns(ctx context.Context, row interface{}, columns map[string]interface{}) error

	// Reload reads row again by its primary key. With lock the row stays locked
	// against other writers until the surrounding transaction ends.
	Reload(ctx context.Context, row interface{}, lock bool) error

	// Delete removes row, identified by its primary key.
	Delete(ctx context.Context, row interface{}) error

	RunStore
	ExtractStore
}

// RunStore holds the run-level queries of the metadata store.
type RunStore interface {
	// LatestRun returns the run of processID with the greatest run id, or nil.
	LatestRun(ctx context.Context, processID int64) (*model.ProcessTracking, error)

	// CountBlockingParentProcesses counts the parent processes of processID
	// that have a run in one of statusIDs.
	CountBlockingParentProcesses(ctx context.Context, processID int64, statusIDs []int64) (int64, error)

	// ClearLatestRun unsets is_latest_run on every run of processID.
	ClearLatestRun(ctx context.Context, processID int64) error
}

// ExtractFilter narrows FindExtracts. Zero fields are ignored.
type ExtractFilter struct {
	FilenameContains string
	LocationName     string
	LocationPath     string
	ProcessName      string
	StatusID         int64
}

// ExtractStore holds the extract-level queries of the metadata store.
type ExtractStore interface {
	// FindExtracts returns the extracts matching filter ordered by registration time.
	FindExtracts(ctx context.Context, filter ExtractFilter) ([]*model.Extract, error)

	// FindParentExtracts returns the parents of extractID whose status is one of statusIDs.
	FindParentExtracts(ctx context.Context, extractID int64, statusIDs []int64) ([]*model.Extract, error)

	// CountLocationsWithNamePrefix counts locations whose name starts with prefix.
	CountLocationsWithNamePrefix(ctx context.Context, prefix string) (int64, error)

	// IncrementLocationFileCount adds one to the file count of locationID.
	IncrementLocationFileCount(ctx context.Context, locationID int64) error
}
