package extract

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Extract is a handle on one registered extract as seen by one run.
type Extract struct {
	engine *Engine
	// Row is the extract row as last written through this handle.
	Row *model.Extract
	// Location is where the extract lives.
	Location *model.Location
	runID    int64
	status   string
}

// ID returns the extract id.
func (x *Extract) ID() int64 { return x.Row.ExtractID }

// Filename returns the extract filename.
func (x *Extract) Filename() string { return x.Row.ExtractFilename }

// Status returns the status last set through this handle.
func (x *Extract) Status() string { return x.status }

// AddDependency records a dependency between x and other. With kind "parent",
// other becomes a parent of x; with "child", other becomes a child of x.
func (x *Extract) AddDependency(ctx context.Context, kind string, other *Extract) error {
	k, err := model.ParseDependencyKind(kind)
	if err != nil {
		return err
	}
	edge := &model.ExtractDependency{ParentExtractID: other.ID(), ChildExtractID: x.ID()}
	if k == model.DependencyChild {
		edge = &model.ExtractDependency{ParentExtractID: x.ID(), ChildExtractID: other.ID()}
	}
	if err := x.engine.store.FindOrCreate(ctx, edge, true); err != nil {
		return err
	}
	logger.Debugf("Extract '%s' now has %s '%s'.", x.Filename(), k, other.Filename())
	return nil
}

// ChangeStatus moves the extract and the run's view of it to status.
//
// Moving into loading requires every parent extract to be out of the
// initializing, ready and loading states. Parents listed in bulk are being
// changed together with x and count as satisfied.
func (x *Extract) ChangeStatus(ctx context.Context, status string, bulk ...*Extract) error {
	const op = "Extract.ChangeStatus"
	e := x.engine

	ctx, end := e.tracer.StartSpan(ctx, "extract.change_status", map[string]interface{}{
		"extract.filename": x.Filename(),
		"extract.status":   status,
	})
	defer end()

	var statusID int64
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		var err error
		if statusID, err = e.statusID(ctx, status); err != nil {
			return err
		}

		if status == model.ExtractStatusLoading {
			if err := x.checkParents(ctx, bulk); err != nil {
				return err
			}
		}

		if err := e.store.UpdateColumns(ctx, &model.Extract{ExtractID: x.ID()}, map[string]interface{}{
			"extract_status_id": statusID,
		}); err != nil {
			return err
		}
		if x.runID != 0 {
			return x.setRunStatus(ctx, statusID)
		}
		return nil
	})
	if err != nil {
		e.tracer.RecordError(ctx, op, err)
		return err
	}

	x.Row.ExtractStatusID = statusID
	x.status = status
	e.recorder.RecordExtractStatus(ctx, status)
	logger.Debugf("Extract '%s' changed to status '%s'.", x.Filename(), status)
	return nil
}

// checkParents fails with DependenciesNotSatisfied when a parent outside bulk
// blocks the move to loading.
func (x *Extract) checkParents(ctx context.Context, bulk []*Extract) error {
	e := x.engine
	blockingIDs, err := e.statusIDs(ctx, model.BlockingParentExtractStatuses)
	if err != nil {
		return err
	}
	parents, err := e.store.FindParentExtracts(ctx, x.ID(), blockingIDs)
	if err != nil {
		return err
	}

	together := make(map[int64]bool, len(bulk))
	for _, b := range bulk {
		together[b.ID()] = true
	}
	var blocking []string
	for _, p := range parents {
		if !together[p.ExtractID] {
			blocking = append(blocking, p.ExtractFilename)
		}
	}
	if len(blocking) > 0 {
		return exception.Newf(exception.ErrDependenciesNotSatisfied, "Extract.ChangeStatus",
			"Extract '%s' cannot be loaded: parent extracts are not ready (%s).", x.Filename(), strings.Join(blocking, ", "))
	}
	return nil
}

// ensureRunStatus creates the run's view of the extract if it does not exist yet.
func (x *Extract) ensureRunStatus(ctx context.Context, statusID int64) error {
	row := &model.ExtractProcess{ExtractID: x.ID(), ProcessTrackingID: x.runID}
	err := x.engine.store.FindOrCreate(ctx, row, false)
	if err == nil || !exception.IsKind(err, exception.ErrNotFound) {
		return err
	}
	row.ExtractProcessStatusID = statusID
	row.ExtractProcessEventDateTime = x.engine.now()
	return x.engine.store.Create(ctx, row)
}

// setRunStatus writes statusID and the event time to the run's view of the extract.
func (x *Extract) setRunStatus(ctx context.Context, statusID int64) error {
	row := &model.ExtractProcess{ExtractID: x.ID(), ProcessTrackingID: x.runID}
	err := x.engine.store.FindOrCreate(ctx, row, false)
	if exception.IsKind(err, exception.ErrNotFound) {
		return x.ensureRunStatus(ctx, statusID)
	}
	if err != nil {
		return err
	}
	return x.engine.store.UpdateColumns(ctx, row, map[string]interface{}{
		"extract_process_status_id":       statusID,
		"extract_process_event_date_time": x.engine.now(),
	})
}

// SetLowHighDates offers low and high to the write or load watermarks. A
// stored low is replaced by an earlier date and a stored high by a later one.
// Nil dates are ignored. The offer is merged with the stored watermarks, not
// with the handle's copy, so concurrent handles cannot lose each other's dates.
func (x *Extract) SetLowHighDates(ctx context.Context, low, high *time.Time, auditType string) error {
	audit, err := model.ParseAuditType(auditType)
	if err != nil {
		return err
	}
	e := x.engine

	var stored *model.Extract
	err = tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		current := &model.Extract{ExtractID: x.ID()}
		if err := e.store.Reload(ctx, current, true); err != nil {
			return err
		}

		lowColumn, highColumn := "extract_write_low_date_time", "extract_write_high_date_time"
		lowField, highField := &current.ExtractWriteLowDateTime, &current.ExtractWriteHighDateTime
		if audit == model.AuditLoad {
			lowColumn, highColumn = "extract_load_low_date_time", "extract_load_high_date_time"
			lowField, highField = &current.ExtractLoadLowDateTime, &current.ExtractLoadHighDateTime
		}
		newLow, err := model.MergeDate(model.DateLow, low, *lowField)
		if err != nil {
			return err
		}
		newHigh, err := model.MergeDate(model.DateHigh, high, *highField)
		if err != nil {
			return err
		}

		columns := map[string]interface{}{}
		if newLow != nil {
			columns[lowColumn] = *newLow
		}
		if newHigh != nil {
			columns[highColumn] = *newHigh
		}
		if err := e.store.UpdateColumns(ctx, &model.Extract{ExtractID: x.ID()}, columns); err != nil {
			return err
		}
		*lowField, *highField = newLow, newHigh
		stored = current
		return nil
	})
	if err != nil {
		return err
	}
	x.Row = stored
	return nil
}

// SetRecordCount overwrites the write or load record count.
func (x *Extract) SetRecordCount(ctx context.Context, n int64, auditType string) error {
	audit, err := model.ParseAuditType(auditType)
	if err != nil {
		return err
	}
	column := "extract_write_record_count"
	if audit == model.AuditLoad {
		column = "extract_load_record_count"
	}
	if err := x.engine.store.UpdateColumns(ctx, &model.Extract{ExtractID: x.ID()}, map[string]interface{}{column: n}); err != nil {
		return err
	}
	if audit == model.AuditLoad {
		x.Row.ExtractLoadRecordCount = &n
	} else {
		x.Row.ExtractWriteRecordCount = &n
	}
	return nil
}

// FileExists checks the storage behind the extract's location for the file.
func (x *Extract) FileExists(ctx context.Context) (bool, error) {
	e := x.engine
	if e.storage == nil {
		return false, exception.New(exception.ErrConfigMissing, "Extract.FileExists", "no storage adapters configured")
	}
	locationType, err := e.locations.TypeName(ctx, x.Location)
	if err != nil {
		return false, err
	}
	conn, err := e.storage.Get(locationType)
	if err != nil {
		return false, err
	}
	bucket, prefix, err := location.StoragePath(x.Location, locationType)
	if err != nil {
		return false, err
	}
	if locationType == model.LocationTypeS3 {
		return conn.Exists(ctx, bucket, path.Join(prefix, x.Filename()))
	}
	return conn.Exists(ctx, "", filepath.Join(prefix, x.Filename()))
}
