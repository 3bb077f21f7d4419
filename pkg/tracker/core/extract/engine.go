// Package extract tracks the data files produced and consumed by process runs:
// their registration, status transitions, dependencies and audit watermarks.
package extract

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Engine registers extracts and hands out Extract handles.
type Engine struct {
	store     repository.MetadataStore
	tm        tx.TransactionManager
	lookups   *lookup.Registry
	locations *location.Resolver
	storage   *storage.Registry
	recorder  metrics.Recorder
	tracer    metrics.Tracer
	now       func() time.Time
}

// EngineParams are the collaborators of an Engine. Storage, Recorder and
// Tracer are optional.
type EngineParams struct {
	fx.In

	Store     repository.MetadataStore
	TxManager tx.TransactionManager
	Lookups   *lookup.Registry
	Locations *location.Resolver
	Storage   *storage.Registry `optional:"true"`
	Recorder  metrics.Recorder  `optional:"true"`
	Tracer    metrics.Tracer    `optional:"true"`
}

// NewEngine creates an Engine.
func NewEngine(p EngineParams) *Engine {
	e := &Engine{
		store:     p.Store,
		tm:        p.TxManager,
		lookups:   p.Lookups,
		locations: p.Locations,
		storage:   p.Storage,
		recorder:  p.Recorder,
		tracer:    p.Tracer,
		now:       time.Now,
	}
	if e.recorder == nil {
		e.recorder = metrics.NewNoOpRecorder()
	}
	if e.tracer == nil {
		e.tracer = metrics.NewNoOpTracer()
	}
	return e
}

// RunContext carries what an extract inherits from the run that touches it.
type RunContext struct {
	// ProcessTrackingID is the run's row id. Zero registers the extract without a run.
	ProcessTrackingID int64
	SourceIDs         []int64
	SourceObjectIDs   []int64
	DatasetTypeIDs    []int64
}

// Options describe an extract to register.
type Options struct {
	Filename string
	// Location is used as is when set; otherwise LocationPath (and the
	// optional LocationName) are resolved.
	Location     *model.Location
	LocationPath string
	LocationName string
	// FileType is derived from the filename extension when empty.
	FileType        string
	CompressionType string
	// Status defaults to "initializing".
	Status       string
	DatasetTypes []string
	Run          RunContext
}

// Register establishes the extract row for opts.Filename (reusing an existing
// one), links it to the run's sources and dataset types and installs the
// extract's status as seen by the run.
func (e *Engine) Register(ctx context.Context, opts Options) (*Extract, error) {
	const op = "Engine.Register"
	if opts.Filename == "" {
		return nil, exception.New(exception.ErrInvalidPath, op, "extract filename is empty")
	}
	status := opts.Status
	explicitStatus := status != ""
	if !explicitStatus {
		status = model.ExtractStatusInitializing
	}

	ctx, end := e.tracer.StartSpan(ctx, "extract.register", map[string]interface{}{"extract.filename": opts.Filename})
	defer end()

	x := &Extract{engine: e, runID: opts.Run.ProcessTrackingID, status: status}
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		statusID, err := e.statusID(ctx, status)
		if err != nil {
			return err
		}

		loc := opts.Location
		if loc == nil {
			if loc, err = e.locations.Resolve(ctx, opts.LocationPath, opts.LocationName); err != nil {
				return err
			}
		}
		x.Location = loc

		row := &model.Extract{ExtractFilename: opts.Filename}
		err = e.store.FindOrCreate(ctx, row, false)
		switch {
		case err == nil:
			if explicitStatus && row.ExtractStatusID != statusID {
				if err := e.store.UpdateColumns(ctx, &model.Extract{ExtractID: row.ExtractID}, map[string]interface{}{
					"extract_status_id": statusID,
				}); err != nil {
					return err
				}
				row.ExtractStatusID = statusID
			}
			status = e.statusName(ctx, row.ExtractStatusID, status)
		case exception.IsKind(err, exception.ErrNotFound):
			if err := e.createRow(ctx, row, loc, statusID, opts); err != nil {
				return err
			}
		default:
			return err
		}
		x.Row = row
		x.status = status

		if err := e.associate(ctx, row.ExtractID, opts); err != nil {
			return err
		}
		if opts.Run.ProcessTrackingID != 0 {
			return x.ensureRunStatus(ctx, statusID)
		}
		return nil
	})
	if err != nil {
		e.tracer.RecordError(ctx, op, err)
		return nil, err
	}
	return x, nil
}

func (e *Engine) createRow(ctx context.Context, row *model.Extract, loc *model.Location, statusID int64, opts Options) error {
	fileTypeID, compressionID, err := e.resolveFormat(ctx, opts.Filename, opts.FileType, opts.CompressionType)
	if err != nil {
		return err
	}
	row.LocationID = loc.LocationID
	row.ExtractStatusID = statusID
	row.ExtractRegistrationDateTime = e.now()
	row.FileTypeID = fileTypeID
	row.CompressionTypeID = compressionID
	if err := e.store.Create(ctx, row); err != nil {
		return err
	}
	if err := e.store.IncrementLocationFileCount(ctx, loc.LocationID); err != nil {
		return err
	}
	logger.Infof("Extract '%s' registered at location '%s'.", row.ExtractFilename, loc.LocationName)
	return nil
}

// associate links the extract to the run's sources and dataset types and to
// the extra dataset types named in opts.
func (e *Engine) associate(ctx context.Context, extractID int64, opts Options) error {
	rows := make([]interface{}, 0, len(opts.Run.SourceIDs)+len(opts.Run.SourceObjectIDs)+len(opts.Run.DatasetTypeIDs)+len(opts.DatasetTypes))
	for _, id := range opts.Run.SourceIDs {
		rows = append(rows, &model.ExtractSource{ExtractID: extractID, SourceID: id})
	}
	for _, id := range opts.Run.SourceObjectIDs {
		rows = append(rows, &model.ExtractSourceObject{ExtractID: extractID, SourceObjectID: id})
	}
	for _, id := range opts.Run.DatasetTypeIDs {
		rows = append(rows, &model.ExtractDatasetType{ExtractID: extractID, DatasetTypeID: id})
	}
	for _, name := range opts.DatasetTypes {
		dt, err := e.lookups.Resolve(ctx, lookup.TopicDatasetType, name, true)
		if err != nil {
			return err
		}
		rows = append(rows, &model.ExtractDatasetType{ExtractID: extractID, DatasetTypeID: dt.LookupID()})
	}
	for _, row := range rows {
		if err := e.store.FindOrCreate(ctx, row, true); err != nil {
			return err
		}
	}
	return nil
}

// statusID returns the id of the extract status named name.
func (e *Engine) statusID(ctx context.Context, name string) (int64, error) {
	row, err := e.lookups.Resolve(ctx, lookup.TopicExtractStatus, name, false)
	if exception.IsKind(err, exception.ErrNotFound) {
		return 0, exception.Newf(exception.ErrInvalidStatus, "extract.statusID", "%s is not a valid extract status type.", name)
	}
	if err != nil {
		return 0, err
	}
	return row.LookupID(), nil
}

// statusIDs returns the ids of the named statuses.
func (e *Engine) statusIDs(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		id, err := e.statusID(ctx, n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// statusName returns the name of status id, or fallback when it cannot be read.
func (e *Engine) statusName(ctx context.Context, id int64, fallback string) string {
	var rows []*model.ExtractStatus
	if err := e.store.Find(ctx, &rows, &model.ExtractStatus{ExtractStatusID: id}, "", 1); err != nil || len(rows) == 0 {
		return fallback
	}
	return rows[0].ExtractStatusName
}

// Load returns a handle on the already registered extract named filename.
// runID, when not zero, is the run whose view of the extract is updated by
// status changes.
func (e *Engine) Load(ctx context.Context, filename string, runID int64) (*Extract, error) {
	if filename == "" {
		return nil, exception.New(exception.ErrInvalidName, "Engine.Load", "extract filename is empty")
	}
	row := &model.Extract{ExtractFilename: filename}
	if err := e.store.FindOrCreate(ctx, row, false); err != nil {
		return nil, err
	}
	return e.handle(ctx, row, runID)
}

// handle wraps a loaded extract row.
func (e *Engine) handle(ctx context.Context, row *model.Extract, runID int64) (*Extract, error) {
	loc := &model.Location{}
	var locs []*model.Location
	if err := e.store.Find(ctx, &locs, &model.Location{LocationID: row.LocationID}, "", 1); err != nil {
		return nil, err
	}
	if len(locs) == 1 {
		loc = locs[0]
	}
	return &Extract{
		engine:   e,
		Row:      row,
		Location: loc,
		runID:    runID,
		status:   e.statusName(ctx, row.ExtractStatusID, ""),
	}, nil
}

// Wrap returns handles on rows, for example the result of a discovery query.
func (e *Engine) Wrap(ctx context.Context, rows []*model.Extract, runID int64) ([]*Extract, error) {
	extracts := make([]*Extract, 0, len(rows))
	for _, row := range rows {
		x, err := e.handle(ctx, row, runID)
		if err != nil {
			return nil, err
		}
		extracts = append(extracts, x)
	}
	return extracts, nil
}

// Module provides the Engine to Fx.
var Module = fx.Options(
	fx.Provide(NewEngine),
)
