package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/local"
	s3adapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/s3"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/core/extract"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/test"
)

type fixture struct {
	env    *test.Env
	engine *extract.Engine
	s3     *test.FakeS3Client
	dir    string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(test.NewEnv(t), nil)
}

// newFixtureWithStore builds the engine over store, or over the env's store when store is nil.
func newFixtureWithStore(env *test.Env, store repository.MetadataStore) *fixture {
	if store == nil {
		store = env.Store
	}
	s3client := test.NewFakeS3Client()
	lookups := lookup.NewRegistry(env.Store, env.TxManager)
	engine := extract.NewEngine(extract.EngineParams{
		Store:     store,
		TxManager: env.TxManager,
		Lookups:   lookups,
		Locations: location.NewResolver(env.Store, env.TxManager),
		Storage:   storage.NewRegistry(local.NewLocalAdapter(), s3adapter.NewS3Adapter(s3adapter.WithS3Client(s3client))),
	})
	return &fixture{env: env, engine: engine, s3: s3client, dir: "/data/landing"}
}

func (f *fixture) register(t *testing.T, filename string) *extract.Extract {
	x, err := f.engine.Register(context.Background(), extract.Options{Filename: filename, LocationPath: f.dir})
	require.NoError(t, err)
	return x
}

func (f *fixture) reload(t *testing.T, x *extract.Extract) *model.Extract {
	row := &model.Extract{ExtractFilename: x.Filename()}
	require.NoError(t, f.env.Store.FindOrCreate(context.Background(), row, false))
	return row
}

func (f *fixture) statusID(t *testing.T, name string) int64 {
	row := &model.ExtractStatus{ExtractStatusName: name}
	require.NoError(t, f.env.Store.FindOrCreate(context.Background(), row, false))
	return row.ExtractStatusID
}

// day returns January d, 2026.
func day(d int) *time.Time {
	v := time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	x := f.register(t, "orders.csv")
	assert.Equal(t, model.ExtractStatusInitializing, x.Status())
	assert.Equal(t, f.statusID(t, model.ExtractStatusInitializing), x.Row.ExtractStatusID)
	require.NotNil(t, x.Row.FileTypeID)
	assert.Nil(t, x.Row.CompressionTypeID)
	assert.Equal(t, int64(1), f.reloadLocation(t, x).LocationFileCount)

	again := f.register(t, "orders.csv")
	assert.Equal(t, x.ID(), again.ID())
	assert.Equal(t, int64(1), f.reloadLocation(t, x).LocationFileCount)

	n, err := f.env.Store.Count(ctx, &model.Extract{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func (f *fixture) reloadLocation(t *testing.T, x *extract.Extract) *model.Location {
	loc := &model.Location{LocationPath: x.Location.LocationPath}
	require.NoError(t, f.env.Store.FindOrCreate(context.Background(), loc, false))
	return loc
}

func TestRegister_FileTypeDerivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gz := f.register(t, "orders_2026.CSV.gz")
	csv := &model.FileType{FileTypeName: "csv"}
	require.NoError(t, f.env.Store.FindOrCreate(ctx, csv, false))
	gzip := &model.CompressionType{CompressionTypeName: "gzip"}
	require.NoError(t, f.env.Store.FindOrCreate(ctx, gzip, false))
	require.NotNil(t, gz.Row.FileTypeID)
	require.NotNil(t, gz.Row.CompressionTypeID)
	assert.Equal(t, csv.FileTypeID, *gz.Row.FileTypeID)
	assert.Equal(t, gzip.CompressionTypeID, *gz.Row.CompressionTypeID)

	_, err := f.engine.Register(ctx, extract.Options{Filename: "orders.xlsx", LocationPath: f.dir})
	assert.True(t, exception.IsKind(err, exception.ErrUnknownFileType))

	_, err = f.engine.Register(ctx, extract.Options{Filename: "README", LocationPath: f.dir})
	assert.True(t, exception.IsKind(err, exception.ErrUnknownFileType))

	explicit, err := f.engine.Register(ctx, extract.Options{Filename: "README", LocationPath: f.dir, FileType: "txt"})
	require.NoError(t, err)
	assert.NotNil(t, explicit.Row.FileTypeID)
}

func TestRegister_InvalidInitialStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Register(context.Background(), extract.Options{Filename: "a.csv", LocationPath: f.dir, Status: "bogus"})
	assert.True(t, exception.IsKind(err, exception.ErrInvalidStatus))
}

func TestAddDependency_InvalidKind(t *testing.T) {
	f := newFixture(t)
	e1 := f.register(t, "e1.csv")
	e2 := f.register(t, "e2.csv")

	err := e2.AddDependency(context.Background(), "sibling", e1)
	assert.True(t, exception.IsKind(err, exception.ErrInvalidDependencyKind))
}

func TestChangeStatus_DependencyBlocksLoading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1 := f.register(t, "e1.csv")
	e2 := f.register(t, "e2.csv")
	require.NoError(t, e2.AddDependency(ctx, "parent", e1))
	require.NoError(t, e1.ChangeStatus(ctx, model.ExtractStatusLoading))

	err := e2.ChangeStatus(ctx, model.ExtractStatusLoading)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrDependenciesNotSatisfied))
	assert.Contains(t, err.Error(), "e1.csv")
	assert.Equal(t, f.statusID(t, model.ExtractStatusInitializing), f.reload(t, e2).ExtractStatusID)

	require.NoError(t, e1.ChangeStatus(ctx, model.ExtractStatusLoaded))
	require.NoError(t, e2.ChangeStatus(ctx, model.ExtractStatusLoading))
	assert.Equal(t, f.statusID(t, model.ExtractStatusLoading), f.reload(t, e2).ExtractStatusID)
}

func TestChangeStatus_ChildDependency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.register(t, "parent.csv")
	child := f.register(t, "child.csv")
	require.NoError(t, parent.AddDependency(ctx, "child", child))

	err := child.ChangeStatus(ctx, model.ExtractStatusLoading)
	assert.True(t, exception.IsKind(err, exception.ErrDependenciesNotSatisfied))
}

func TestChangeStatus_BulkPermitsCoDependentLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1 := f.register(t, "e1.csv")
	e2 := f.register(t, "e2.csv")
	require.NoError(t, e2.AddDependency(ctx, "parent", e1))
	require.NoError(t, e1.ChangeStatus(ctx, model.ExtractStatusReady))
	require.NoError(t, e2.ChangeStatus(ctx, model.ExtractStatusReady))

	bulk := []*extract.Extract{e1, e2}
	for _, x := range bulk {
		require.NoError(t, x.ChangeStatus(ctx, model.ExtractStatusLoading, bulk...))
	}
	assert.Equal(t, f.statusID(t, model.ExtractStatusLoading), f.reload(t, e1).ExtractStatusID)
	assert.Equal(t, f.statusID(t, model.ExtractStatusLoading), f.reload(t, e2).ExtractStatusID)
}

func TestChangeStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	x := f.register(t, "e1.csv")

	err := x.ChangeStatus(context.Background(), "teleported")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidStatus))
}

func TestChangeStatus_UpdatesRunView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	runID := test.NewRun(t, f.env, "extract_orders")

	x, err := f.engine.Register(ctx, extract.Options{
		Filename:     "orders.csv",
		LocationPath: f.dir,
		Run:          extract.RunContext{ProcessTrackingID: runID},
		DatasetTypes: []string{"sales"},
	})
	require.NoError(t, err)

	view := &model.ExtractProcess{ExtractID: x.ID(), ProcessTrackingID: runID}
	require.NoError(t, f.env.Store.FindOrCreate(ctx, view, false))
	assert.Equal(t, f.statusID(t, model.ExtractStatusInitializing), view.ExtractProcessStatusID)
	first := view.ExtractProcessEventDateTime

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, x.ChangeStatus(ctx, model.ExtractStatusReady))
	view = &model.ExtractProcess{ExtractID: x.ID(), ProcessTrackingID: runID}
	require.NoError(t, f.env.Store.FindOrCreate(ctx, view, false))
	assert.Equal(t, f.statusID(t, model.ExtractStatusReady), view.ExtractProcessStatusID)
	assert.True(t, view.ExtractProcessEventDateTime.After(first))

	n, err := f.env.Store.Count(ctx, &model.ExtractDatasetType{}, &model.ExtractDatasetType{ExtractID: x.ID()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSetLowHighDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.register(t, "orders.csv")

	require.NoError(t, x.SetLowHighDates(ctx, day(10), day(10), "write"))
	require.NoError(t, x.SetLowHighDates(ctx, day(5), day(8), "write"))
	require.NoError(t, x.SetLowHighDates(ctx, day(7), day(20), "write"))
	require.NoError(t, x.SetLowHighDates(ctx, nil, day(15), "write"))

	row := f.reload(t, x)
	require.NotNil(t, row.ExtractWriteLowDateTime)
	require.NotNil(t, row.ExtractWriteHighDateTime)
	assert.True(t, row.ExtractWriteLowDateTime.Equal(*day(5)))
	assert.True(t, row.ExtractWriteHighDateTime.Equal(*day(20)))
	assert.Nil(t, row.ExtractLoadLowDateTime)

	require.NoError(t, x.SetLowHighDates(ctx, day(3), nil, "LOAD"))
	row = f.reload(t, x)
	require.NotNil(t, row.ExtractLoadLowDateTime)
	assert.True(t, row.ExtractLoadLowDateTime.Equal(*day(3)))
	assert.Nil(t, row.ExtractLoadHighDateTime)

	err := x.SetLowHighDates(ctx, day(1), day(2), "read")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidAuditType))
}

func TestSetRecordCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.register(t, "orders.csv")

	require.NoError(t, x.SetRecordCount(ctx, 100, "write"))
	require.NoError(t, x.SetRecordCount(ctx, 40, "write"))
	require.NoError(t, x.SetRecordCount(ctx, 90, "load"))

	row := f.reload(t, x)
	require.NotNil(t, row.ExtractWriteRecordCount)
	require.NotNil(t, row.ExtractLoadRecordCount)
	assert.Equal(t, int64(40), *row.ExtractWriteRecordCount)
	assert.Equal(t, int64(90), *row.ExtractLoadRecordCount)

	err := x.SetRecordCount(ctx, 1, "unknown")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidAuditType))
}

func TestFileExistsOnStorage(t *testing.T) {
	f := newFixture(t)
	f.dir = t.TempDir()
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "present.csv"), []byte("a,b\n"), 0o644))
	present := f.register(t, "present.csv")
	ok, err := present.FileExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	missing := f.register(t, "missing.csv")
	ok, err = missing.FileExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	f.s3.Put("landing", "daily/remote.csv")
	remote, err := f.engine.Register(ctx, extract.Options{Filename: "remote.csv", LocationPath: "s3://landing/daily"})
	require.NoError(t, err)
	ok, err = remote.FileExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.register(t, "orders.csv")
	require.NoError(t, x.ChangeStatus(ctx, model.ExtractStatusReady))

	loaded, err := f.engine.Load(ctx, "orders.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, x.ID(), loaded.ID())
	assert.Equal(t, model.ExtractStatusReady, loaded.Status())
	assert.Equal(t, f.dir, loaded.Location.LocationPath)

	_, err = f.engine.Load(ctx, "nope.csv", 0)
	assert.True(t, exception.IsKind(err, exception.ErrNotFound))

	_, err = f.engine.Load(ctx, "", 0)
	assert.True(t, exception.IsKind(err, exception.ErrInvalidName))
}

func TestHandles_WritesKeepOtherColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.register(t, "a.csv")
	second, err := f.engine.Load(ctx, "a.csv", 0)
	require.NoError(t, err)

	require.NoError(t, second.ChangeStatus(ctx, model.ExtractStatusReady))
	// first still holds the initializing row.
	require.NoError(t, first.SetRecordCount(ctx, 10, "write"))
	require.NoError(t, first.SetLowHighDates(ctx, nil, day(3), "load"))

	row := f.reload(t, first)
	assert.Equal(t, f.statusID(t, model.ExtractStatusReady), row.ExtractStatusID)
	require.NotNil(t, row.ExtractWriteRecordCount)
	assert.Equal(t, int64(10), *row.ExtractWriteRecordCount)

	require.NoError(t, second.SetRecordCount(ctx, 7, "load"))
	require.NoError(t, first.ChangeStatus(ctx, model.ExtractStatusLoading))
	row = f.reload(t, first)
	assert.Equal(t, f.statusID(t, model.ExtractStatusLoading), row.ExtractStatusID)
	require.NotNil(t, row.ExtractWriteRecordCount)
	assert.Equal(t, int64(10), *row.ExtractWriteRecordCount)
	require.NotNil(t, row.ExtractLoadRecordCount)
	assert.Equal(t, int64(7), *row.ExtractLoadRecordCount)
	require.NotNil(t, row.ExtractLoadHighDateTime)
	assert.True(t, row.ExtractLoadHighDateTime.Equal(*day(3)))
}

func TestSetLowHighDates_MergesAcrossHandles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.register(t, "a.csv")
	second, err := f.engine.Load(ctx, "a.csv", 0)
	require.NoError(t, err)

	require.NoError(t, first.SetLowHighDates(ctx, day(10), nil, "write"))
	require.NoError(t, second.SetLowHighDates(ctx, day(1), nil, "write"))
	require.NoError(t, first.SetLowHighDates(ctx, nil, day(28), "write"))

	row := f.reload(t, first)
	require.NotNil(t, row.ExtractWriteLowDateTime)
	require.NotNil(t, row.ExtractWriteHighDateTime)
	assert.True(t, row.ExtractWriteLowDateTime.Equal(*day(1)))
	assert.True(t, row.ExtractWriteHighDateTime.Equal(*day(28)))

	// The handle sees the merged watermarks after its write.
	require.NotNil(t, first.Row.ExtractWriteLowDateTime)
	assert.True(t, first.Row.ExtractWriteLowDateTime.Equal(*day(1)))
}

func TestChangeStatus_RollbackLeavesHandleUnchanged(t *testing.T) {
	env := test.NewEnv(t)
	store := &test.FailingStore{
		MetadataStore: env.Store,
		Refuse: func(row interface{}) bool {
			_, ok := row.(*model.ExtractProcess)
			return ok
		},
	}
	f := newFixtureWithStore(env, store)
	ctx := context.Background()

	runID := test.NewRun(t, env, "P1")
	x, err := f.engine.Register(ctx, extract.Options{
		Filename:     "orders.csv",
		LocationPath: f.dir,
		Run:          extract.RunContext{ProcessTrackingID: runID},
	})
	require.NoError(t, err)
	initializing := f.statusID(t, model.ExtractStatusInitializing)

	err = x.ChangeStatus(ctx, model.ExtractStatusReady)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrStore))

	assert.Equal(t, model.ExtractStatusInitializing, x.Status())
	assert.Equal(t, initializing, x.Row.ExtractStatusID)
	assert.Equal(t, initializing, f.reload(t, x).ExtractStatusID)
}
