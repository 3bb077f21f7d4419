package process

import (
	"context"

	"github.com/hashicorp/go-multierror"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/core/extract"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// LocationQuery selects a location by name or by path. Name wins when both are set.
type LocationQuery struct {
	Name string
	Path string
}

// FindExtractsByFilename returns the extracts whose filename contains
// substring and whose status is status ("ready" when empty), oldest first.
func (r *Run) FindExtractsByFilename(ctx context.Context, substring, status string) ([]*extract.Extract, error) {
	return r.findExtracts(ctx, repository.ExtractFilter{FilenameContains: substring}, status)
}

// FindExtractsByLocation returns the extracts at the location selected by q
// whose status is status ("ready" when empty), oldest first.
func (r *Run) FindExtractsByLocation(ctx context.Context, q LocationQuery, status string) ([]*extract.Extract, error) {
	filter := repository.ExtractFilter{}
	switch {
	case q.Name != "":
		filter.LocationName = q.Name
	case q.Path != "":
		filter.LocationPath = q.Path
	default:
		return nil, exception.New(exception.ErrLocationUnset, "ProcessRun.FindExtractsByLocation", "A location name or path must be provided.")
	}
	return r.findExtracts(ctx, filter, status)
}

// FindExtractsByProcess returns the extracts touched by runs of the process
// named processName whose status is status ("ready" when empty), oldest first.
func (r *Run) FindExtractsByProcess(ctx context.Context, processName, status string) ([]*extract.Extract, error) {
	if processName == "" {
		return nil, exception.New(exception.ErrInvalidName, "ProcessRun.FindExtractsByProcess", "process name is empty")
	}
	return r.findExtracts(ctx, repository.ExtractFilter{ProcessName: processName}, status)
}

func (r *Run) findExtracts(ctx context.Context, filter repository.ExtractFilter, status string) ([]*extract.Extract, error) {
	if status == "" {
		status = model.ExtractStatusReady
	}
	row, err := r.engine.lookups.Resolve(ctx, lookup.TopicExtractStatus, status, false)
	if exception.IsKind(err, exception.ErrNotFound) {
		return nil, exception.Newf(exception.ErrInvalidStatus, "ProcessRun.findExtracts", "%s is not a valid extract status type.", status)
	}
	if err != nil {
		return nil, err
	}
	filter.StatusID = row.LookupID()

	rows, err := r.engine.store.FindExtracts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return r.engine.extracts.Wrap(ctx, rows, r.ID())
}

// BulkChangeExtractStatus moves every extract to status. The extracts are
// changed together, so dependencies among them do not block a move to
// loading. Every extract is attempted; the failures are returned together.
func (r *Run) BulkChangeExtractStatus(ctx context.Context, extracts []*extract.Extract, status string) error {
	var result *multierror.Error
	for _, x := range extracts {
		if err := x.ChangeStatus(ctx, status, extracts...); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Warnf("Bulk change to '%s' failed for %d of %d extracts.", status, len(result.Errors), len(extracts))
		return err
	}
	logger.Infof("Changed %d extracts to status '%s'.", len(extracts), status)
	return nil
}

// RegisterExtractsByLocation registers every file found at the location path
// as an extract of the run in status ready. name names the location when it
// is new.
func (r *Run) RegisterExtractsByLocation(ctx context.Context, path, name string) ([]*extract.Extract, error) {
	const op = "ProcessRun.RegisterExtractsByLocation"
	e := r.engine
	if e.storage == nil {
		return nil, exception.New(exception.ErrConfigMissing, op, "no storage adapters configured")
	}

	loc, err := e.locations.Resolve(ctx, path, name)
	if err != nil {
		return nil, err
	}
	locationType, err := e.locations.TypeName(ctx, loc)
	if err != nil {
		return nil, err
	}
	conn, err := e.storage.Get(locationType)
	if err != nil {
		return nil, err
	}
	bucket, prefix, err := location.StoragePath(loc, locationType)
	if err != nil {
		return nil, err
	}

	var filenames []string
	err = conn.ListObjects(ctx, bucket, prefix, func(objectName string) error {
		filenames = append(filenames, objectName)
		return nil
	})
	if err != nil {
		return nil, exception.Wrap(exception.ErrStore, op, "failed to list location '"+path+"'", err)
	}

	extracts := make([]*extract.Extract, 0, len(filenames))
	for _, filename := range filenames {
		x, err := r.RegisterExtract(ctx, extract.Options{
			Filename: filename,
			Location: loc,
			Status:   model.ExtractStatusReady,
		})
		if err != nil {
			return extracts, err
		}
		extracts = append(extracts, x)
	}
	logger.Infof("Registered %d extracts from location '%s'.", len(extracts), loc.LocationName)
	return extracts, nil
}
