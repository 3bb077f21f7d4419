package process

import (
	"context"
	"time"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/extract"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Run is a started run of a process.
type Run struct {
	engine *Engine
	// SessionID correlates the log lines and spans of this run.
	SessionID string
	// Process is the process row.
	Process *model.Process
	// Row is the run row as last written through this handle.
	Row *model.ProcessTracking

	status     string
	extractRun extract.RunContext
}

// ID returns the process_tracking_id of the run.
func (r *Run) ID() int64 { return r.Row.ProcessTrackingID }

// Status returns the run status last set through this handle.
func (r *Run) Status() string { return r.status }

// ChangeRunStatus moves the run to status. Completed and failed runs get an
// end date, endDate when given and the current time otherwise. A failed run
// also stamps the process's last failure time.
func (r *Run) ChangeRunStatus(ctx context.Context, status string, endDate *time.Time) error {
	const op = "ProcessRun.ChangeRunStatus"
	e := r.engine

	ctx, end := e.tracer.StartSpan(ctx, "process.change_run_status", map[string]interface{}{
		"process.name":   r.Process.ProcessName,
		"process.status": status,
	})
	defer end()

	var statusID int64
	var runEnd *time.Time
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		var err error
		if statusID, err = e.processStatusID(ctx, status); err != nil {
			return err
		}
		columns := map[string]interface{}{"process_status_id": statusID}

		if model.IsFinishedRunStatus(status) {
			finished := e.now()
			if endDate != nil {
				finished = *endDate
			}
			runEnd = &finished
			columns["process_run_end_date_time"] = finished
			if status == model.ProcessStatusFailed {
				if err := e.store.UpdateColumns(ctx, &model.Process{ProcessID: r.Process.ProcessID}, map[string]interface{}{
					"last_failed_run_date_time": finished,
				}); err != nil {
					return err
				}
			}
		}
		return e.store.UpdateColumns(ctx, &model.ProcessTracking{ProcessTrackingID: r.ID()}, columns)
	})
	if err != nil {
		e.tracer.RecordError(ctx, op, err)
		return err
	}

	r.Row.ProcessStatusID = statusID
	if runEnd != nil {
		r.Row.ProcessRunEndDateTime = runEnd
		if status == model.ProcessStatusFailed {
			r.Process.LastFailedRunDateTime = runEnd
		}
	}
	r.status = status
	var elapsed time.Duration
	if r.Row.ProcessRunEndDateTime != nil {
		elapsed = r.Row.ProcessRunEndDateTime.Sub(r.Row.ProcessRunStartDateTime)
	}
	e.recorder.RecordRunStatus(ctx, r.Process.ProcessName, status, elapsed)
	logger.Infof("Process '%s' run %d changed to status '%s'.", r.Process.ProcessName, r.Row.ProcessRunID, status)
	return nil
}

// RaiseRunError records an error of the existing type errorType against the
// run. With failRun the run is moved to failed and a RunFailed error is
// returned.
func (r *Run) RaiseRunError(ctx context.Context, errorType, description string, failRun bool, endDate *time.Time) error {
	const op = "ProcessRun.RaiseRunError"
	e := r.engine

	et, err := e.lookups.Resolve(ctx, lookup.TopicErrorType, errorType, false)
	if err != nil {
		return err
	}
	row := &model.ErrorTracking{
		ErrorTypeID:             et.LookupID(),
		ErrorDescription:        description,
		ErrorOccurrenceDateTime: e.now(),
		ProcessTrackingID:       r.ID(),
	}
	if err := e.store.Create(ctx, row); err != nil {
		return err
	}
	e.recorder.RecordRunError(ctx, r.Process.ProcessName, errorType)
	logger.Errorf("Process '%s' run %d raised %s: %s", r.Process.ProcessName, r.Row.ProcessRunID, errorType, description)

	if !failRun {
		return nil
	}
	if err := r.ChangeRunStatus(ctx, model.ProcessStatusFailed, endDate); err != nil {
		return err
	}
	failure := exception.Newf(exception.ErrRunFailed, op, "Process %s failed with %s: %s", r.Process.ProcessName, errorType, description)
	e.tracer.RecordError(ctx, op, failure)
	return failure
}

// SetRunLowHighDates offers low and high to the run's watermarks. A stored
// low is replaced by an earlier date and a stored high by a later one. The
// offer is merged with the stored watermarks inside a transaction.
func (r *Run) SetRunLowHighDates(ctx context.Context, low, high *time.Time) error {
	e := r.engine
	var stored *model.ProcessTracking
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		current := &model.ProcessTracking{ProcessTrackingID: r.ID()}
		if err := e.store.Reload(ctx, current, true); err != nil {
			return err
		}
		newLow, err := model.MergeDate(model.DateLow, low, current.ProcessRunLowDateTime)
		if err != nil {
			return err
		}
		newHigh, err := model.MergeDate(model.DateHigh, high, current.ProcessRunHighDateTime)
		if err != nil {
			return err
		}

		columns := map[string]interface{}{}
		if newLow != nil {
			columns["process_run_low_date_time"] = *newLow
		}
		if newHigh != nil {
			columns["process_run_high_date_time"] = *newHigh
		}
		if err := e.store.UpdateColumns(ctx, &model.ProcessTracking{ProcessTrackingID: r.ID()}, columns); err != nil {
			return err
		}
		current.ProcessRunLowDateTime, current.ProcessRunHighDateTime = newLow, newHigh
		stored = current
		return nil
	})
	if err != nil {
		return err
	}
	r.Row = stored
	return nil
}

// SetRunRecordCount sets the run's record count and the process total.
func (r *Run) SetRunRecordCount(ctx context.Context, n int64) error {
	e := r.engine
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		if err := e.store.UpdateColumns(ctx, &model.ProcessTracking{ProcessTrackingID: r.ID()}, map[string]interface{}{
			"process_run_record_count": n,
		}); err != nil {
			return err
		}
		// The process total follows the latest run's count.
		return e.store.UpdateColumns(ctx, &model.Process{ProcessID: r.Process.ProcessID}, map[string]interface{}{
			"total_record_count": n,
		})
	})
	if err != nil {
		return err
	}
	r.Row.ProcessRunRecordCount = n
	r.Process.TotalRecordCount = n
	return nil
}

// AddDependency records a dependency between the run's process and the
// registered process named other. With kind "parent", other becomes a
// parent of this process.
func (r *Run) AddDependency(ctx context.Context, kind, other string) error {
	k, err := model.ParseDependencyKind(kind)
	if err != nil {
		return err
	}
	if other == "" {
		return exception.New(exception.ErrInvalidName, "ProcessRun.AddDependency", "process name is empty")
	}
	p := &model.Process{ProcessName: other}
	if err := r.engine.store.FindOrCreate(ctx, p, false); err != nil {
		return err
	}
	edge := &model.ProcessDependency{ParentProcessID: p.ProcessID, ChildProcessID: r.Process.ProcessID}
	if k == model.DependencyChild {
		edge = &model.ProcessDependency{ParentProcessID: r.Process.ProcessID, ChildProcessID: p.ProcessID}
	}
	if err := r.engine.store.FindOrCreate(ctx, edge, true); err != nil {
		return err
	}
	logger.Debugf("Process '%s' now has %s '%s'.", r.Process.ProcessName, k, other)
	return nil
}

// RegisterExtract registers an extract produced or consumed by the run. The
// extract inherits the run's sources and dataset types.
func (r *Run) RegisterExtract(ctx context.Context, opts extract.Options) (*extract.Extract, error) {
	opts.Run = r.extractRun
	return r.engine.extracts.Register(ctx, opts)
}

// LoadExtract returns a handle on the registered extract named filename whose
// status changes are also recorded against the run.
func (r *Run) LoadExtract(ctx context.Context, filename string) (*extract.Extract, error) {
	return r.engine.extracts.Load(ctx, filename, r.ID())
}
