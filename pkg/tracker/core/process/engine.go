// Package process runs the Process Run Engine: it registers processes with
// their sources and targets, starts and finishes runs, records run errors and
// gives a run access to the extracts it produces and consumes.
package process

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/core/extract"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Engine starts process runs.
type Engine struct {
	store     repository.MetadataStore
	tm        tx.TransactionManager
	lookups   *lookup.Registry
	locations *location.Resolver
	extracts  *extract.Engine
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
	Extracts  *extract.Engine
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
		extracts:  p.Extracts,
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

// Options identify the process a run belongs to.
type Options struct {
	ProcessName string
	ProcessType string
	Actor       string
	Tool        string
	// Sources and Targets name what the process reads and writes.
	Sources      []model.SourceRef
	Targets      []model.SourceRef
	DatasetTypes []string
}

// registration holds the ids resolved for a process before its run starts.
type registration struct {
	process        *model.Process
	actorID        int64
	sourceIDs      []int64
	sourceObjIDs   []int64
	datasetTypeIDs []int64
}

// Start registers the process described by opts and starts a new run of it.
// Registration and the run insert share one transaction: a rejected start
// leaves no new lookups, process or edges behind.
//
// The start is rejected with ParentNotReady when a parent process has a run
// that is running or failed, and with AlreadyRunning when the latest run of
// the process is still running.
func (e *Engine) Start(ctx context.Context, opts Options) (*Run, error) {
	const op = "ProcessRun.Start"
	if opts.ProcessName == "" {
		return nil, exception.New(exception.ErrInvalidName, op, "process name is empty")
	}
	ctx, end := e.tracer.StartRunSpan(ctx, opts.ProcessName)
	defer end()

	var reg *registration
	var row *model.ProcessTracking
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		var err error
		if reg, err = e.register(ctx, opts); err != nil {
			return err
		}
		row, err = e.startRun(ctx, reg)
		return err
	})
	if err != nil {
		switch {
		case exception.IsKind(err, exception.ErrAlreadyRunning):
			e.recorder.RecordRunRejected(ctx, opts.ProcessName, "already_running")
		case exception.IsKind(err, exception.ErrParentNotReady):
			e.recorder.RecordRunRejected(ctx, opts.ProcessName, "parent_not_ready")
		}
		logger.Warnf("Run of process '%s' not started: %v", opts.ProcessName, err)
		e.tracer.RecordError(ctx, op, err)
		return nil, err
	}

	r := &Run{
		engine:    e,
		SessionID: uuid.NewString(),
		Process:   reg.process,
		Row:       row,
		status:    model.ProcessStatusRunning,
	}
	r.extractRun = extract.RunContext{
		ProcessTrackingID: row.ProcessTrackingID,
		SourceIDs:         reg.sourceIDs,
		SourceObjectIDs:   reg.sourceObjIDs,
		DatasetTypeIDs:    reg.datasetTypeIDs,
	}
	e.recorder.RecordRunStart(ctx, opts.ProcessName)
	e.tracer.RecordEvent(ctx, "process.run.started", map[string]interface{}{
		"process.run_id":  row.ProcessRunID,
		"process.session": r.SessionID,
	})
	logger.Infof("Process '%s' run %d started (session %s).", opts.ProcessName, row.ProcessRunID, r.SessionID)
	return r, nil
}

// register resolves the named entities of opts and records the process edges.
func (e *Engine) register(ctx context.Context, opts Options) (*registration, error) {
	reg := &registration{}
	err := tx.WithinTransaction(ctx, e.tm, func(ctx context.Context) error {
		processType, err := e.lookups.Resolve(ctx, lookup.TopicProcessType, opts.ProcessType, true)
		if err != nil {
			return err
		}
		tool, err := e.lookups.Resolve(ctx, lookup.TopicTool, opts.Tool, true)
		if err != nil {
			return err
		}
		actor, err := e.lookups.Resolve(ctx, lookup.TopicActor, opts.Actor, true)
		if err != nil {
			return err
		}
		reg.actorID = actor.LookupID()

		if reg.process, err = e.findOrCreateProcess(ctx, opts.ProcessName, processType.LookupID(), tool.LookupID()); err != nil {
			return err
		}
		pid := reg.process.ProcessID

		var edges []interface{}
		for _, ref := range opts.Sources {
			sourceID, objectID, err := e.resolveSourceRef(ctx, ref)
			if err != nil {
				return err
			}
			if objectID != 0 {
				reg.sourceObjIDs = append(reg.sourceObjIDs, objectID)
				edges = append(edges, &model.ProcessSourceObject{ProcessID: pid, SourceObjectID: objectID})
			} else {
				reg.sourceIDs = append(reg.sourceIDs, sourceID)
				edges = append(edges, &model.ProcessSource{ProcessID: pid, SourceID: sourceID})
			}
		}
		for _, ref := range opts.Targets {
			sourceID, objectID, err := e.resolveSourceRef(ctx, ref)
			if err != nil {
				return err
			}
			if objectID != 0 {
				edges = append(edges, &model.ProcessTargetObject{ProcessID: pid, TargetObjectID: objectID})
			} else {
				edges = append(edges, &model.ProcessTarget{ProcessID: pid, TargetSourceID: sourceID})
			}
		}
		for _, name := range opts.DatasetTypes {
			dt, err := e.lookups.Resolve(ctx, lookup.TopicDatasetType, name, true)
			if err != nil {
				return err
			}
			reg.datasetTypeIDs = append(reg.datasetTypeIDs, dt.LookupID())
			edges = append(edges, &model.ProcessDatasetType{ProcessID: pid, DatasetTypeID: dt.LookupID()})
		}
		for _, edge := range edges {
			if err := e.store.FindOrCreate(ctx, edge, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// findOrCreateProcess returns the process named name, creating it with the
// given type and tool when it is new.
func (e *Engine) findOrCreateProcess(ctx context.Context, name string, processTypeID, toolID int64) (*model.Process, error) {
	p := &model.Process{ProcessName: name}
	err := e.store.FindOrCreate(ctx, p, false)
	if err == nil || !exception.IsKind(err, exception.ErrNotFound) {
		return p, err
	}
	p.ProcessTypeID = processTypeID
	p.ToolID = toolID
	if err := e.store.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Infof("Process '%s' registered.", name)
	return p, nil
}

// resolveSourceRef returns the source id of ref and, for object references,
// the source object id.
func (e *Engine) resolveSourceRef(ctx context.Context, ref model.SourceRef) (sourceID, objectID int64, err error) {
	src, err := e.lookups.Resolve(ctx, lookup.TopicSource, ref.SourceName, true)
	if err != nil {
		return 0, 0, err
	}
	if ref.Kind != model.SourceRefObject {
		return src.LookupID(), 0, nil
	}
	if ref.ObjectName == "" {
		return 0, 0, exception.Newf(exception.ErrInvalidName, "ProcessRun.Start", "object name of source '%s' is empty", ref.SourceName)
	}
	obj := &model.SourceObject{SourceID: src.LookupID(), SourceObjectName: ref.ObjectName}
	if err := e.store.FindOrCreate(ctx, obj, true); err != nil {
		return 0, 0, err
	}
	return src.LookupID(), obj.SourceObjectID, nil
}

// startRun applies the start rules and inserts the new run row.
func (e *Engine) startRun(ctx context.Context, reg *registration) (*model.ProcessTracking, error) {
	const op = "ProcessRun.Start"
	p := reg.process

	blocking, err := e.processStatusIDs(ctx, model.BlockingParentProcessStatuses)
	if err != nil {
		return nil, err
	}
	n, err := e.store.CountBlockingParentProcesses(ctx, p.ProcessID, blocking)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, exception.Newf(exception.ErrParentNotReady, op,
			"Processes that are dependencies for %s are not ready (%d running or failed).", p.ProcessName, n)
	}

	running, err := e.processStatusID(ctx, model.ProcessStatusRunning)
	if err != nil {
		return nil, err
	}
	last, err := e.store.LatestRun(ctx, p.ProcessID)
	if err != nil {
		return nil, err
	}
	runID := int64(1)
	if last != nil {
		if last.ProcessStatusID == running {
			return nil, exception.Newf(exception.ErrAlreadyRunning, op, "The process %s is currently running.", p.ProcessName)
		}
		if err := e.store.ClearLatestRun(ctx, p.ProcessID); err != nil {
			return nil, err
		}
		runID = last.ProcessRunID + 1
	}

	row := &model.ProcessTracking{
		ProcessID:               p.ProcessID,
		ProcessStatusID:         running,
		ProcessRunID:            runID,
		ProcessRunStartDateTime: e.now(),
		ProcessRunActorID:       reg.actorID,
		IsLatestRun:             true,
	}
	if err := e.store.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// processStatusID returns the id of the run status named name.
func (e *Engine) processStatusID(ctx context.Context, name string) (int64, error) {
	row, err := e.lookups.Resolve(ctx, lookup.TopicProcessStatus, name, false)
	if exception.IsKind(err, exception.ErrNotFound) {
		return 0, exception.Newf(exception.ErrInvalidStatus, "process.processStatusID", "%s is not a valid process status type.", name)
	}
	if err != nil {
		return 0, err
	}
	return row.LookupID(), nil
}

func (e *Engine) processStatusIDs(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		id, err := e.processStatusID(ctx, n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Module provides the Engine to Fx.
var Module = fx.Options(
	fx.Provide(NewEngine),
)
