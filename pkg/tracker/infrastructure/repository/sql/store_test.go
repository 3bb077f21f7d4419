package sql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	sqlstore "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/repository/sql"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/test"
)

// setupMockStore builds a store over sqlmock, the way the store is wired in production.
func setupMockStore(t *testing.T) (repository.MetadataStore, sqlmock.Sqlmock, func()) {
	sqlDB, mockDB, err := sqlmock.New()
	require.NoError(t, err)

	cfg := dbconfig.DatabaseConfig{Type: "mysql"}
	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		NamingStrategy:         gormadapter.NamingStrategy(cfg),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, cfg, "metadata")
	require.NoError(t, err)

	teardown := func() {
		mockDB.ExpectClose()
		require.NoError(t, sqlDB.Close())
		assert.NoError(t, mockDB.ExpectationsWereMet())
	}
	return sqlstore.NewSQLMetadataStore(conn), mockDB, teardown
}

func TestLatestRun_QueryFailureIsStoreError(t *testing.T) {
	store, mockDB, teardown := setupMockStore(t)
	defer teardown()

	mockDB.ExpectQuery("SELECT \\* FROM `process_tracking` WHERE process_id = \\?").
		WillReturnError(errors.New("connection reset"))

	run, err := store.LatestRun(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, exception.IsKind(err, exception.ErrStore))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClearLatestRun_UpdatesFlaggedRuns(t *testing.T) {
	store, mockDB, teardown := setupMockStore(t)
	defer teardown()

	mockDB.ExpectExec("UPDATE `process_tracking` SET `is_latest_run`=\\? WHERE process_id = \\? AND is_latest_run = \\?").
		WithArgs(false, int64(3), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.ClearLatestRun(context.Background(), 3))
}

func TestFindOrCreate_RetriesLookupAfterDuplicateKey(t *testing.T) {
	store, _, teardown := setupMockStore(t)
	defer teardown()

	mockTx := new(test.MockTx)
	ctx := tx.WithTx(context.Background(), mockTx)
	dupErr := errors.New("duplicate entry 'airflow' for key 'tool_name'")

	mockTx.On("ExecuteQueryAdvanced", mock.Anything, mock.AnythingOfType("*[]model.Tool"), &model.Tool{ToolName: "airflow"}, "", 2).
		Return(nil).Once()
	mockTx.On("Savepoint", mock.AnythingOfType("string")).Return(nil).Once()
	mockTx.On("ExecuteUpdate", mock.Anything, mock.AnythingOfType("*model.Tool"), gormadapter.OpCreate, nil).
		Return(int64(0), dupErr).Once()
	mockTx.On("IsDuplicateKeyError", dupErr).Return(true).Once()
	mockTx.On("RollbackToSavepoint", mock.AnythingOfType("string")).Return(nil).Once()
	mockTx.On("ExecuteQueryAdvanced", mock.Anything, mock.AnythingOfType("*[]model.Tool"), &model.Tool{ToolName: "airflow"}, "", 2).
		Run(func(args mock.Arguments) {
			rows := args.Get(1).(*[]model.Tool)
			*rows = append(*rows, model.Tool{ToolID: 42, ToolName: "airflow"})
		}).
		Return(nil).Once()

	row := &model.Tool{ToolName: "airflow"}
	require.NoError(t, store.FindOrCreate(ctx, row, true))
	assert.Equal(t, int64(42), row.ToolID)

	savepoint := mockTx.Calls[1].Arguments.String(0)
	assert.Equal(t, savepoint, mockTx.Calls[4].Arguments.String(0))
	mockTx.AssertExpectations(t)
}

func TestFindOrCreate_InsertFailureIsStoreError(t *testing.T) {
	store, _, teardown := setupMockStore(t)
	defer teardown()

	mockTx := new(test.MockTx)
	ctx := tx.WithTx(context.Background(), mockTx)
	insertErr := errors.New("disk full")

	mockTx.On("ExecuteQueryAdvanced", mock.Anything, mock.Anything, mock.Anything, "", 2).Return(nil).Once()
	mockTx.On("Savepoint", mock.AnythingOfType("string")).Return(nil).Once()
	mockTx.On("ExecuteUpdate", mock.Anything, mock.Anything, gormadapter.OpCreate, nil).Return(int64(0), insertErr).Once()
	mockTx.On("IsDuplicateKeyError", insertErr).Return(false).Once()

	err := store.FindOrCreate(ctx, &model.Actor{ActorName: "etl"}, true)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrStore))
	assert.ErrorIs(t, err, insertErr)
	mockTx.AssertExpectations(t)
}

func TestSetup_SeedsProtectedRowsOnce(t *testing.T) {
	env := test.NewEnv(t)
	ctx := context.Background()

	// Setup already ran once in NewEnv.
	require.NoError(t, sqlstore.Setup(ctx, env.Conn))

	n, err := env.Store.Count(ctx, &model.ProcessStatus{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(model.ProtectedProcessStatuses)), n)

	n, err = env.Store.Count(ctx, &model.ExtractStatus{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(model.ProtectedExtractStatuses)), n)

	csv := &model.FileType{FileTypeName: "csv"}
	require.NoError(t, env.Store.FindOrCreate(ctx, csv, false))
	assert.Equal(t, ",", csv.Delimiter)

	gz := &model.CompressionType{CompressionTypeName: "gzip"}
	require.NoError(t, env.Store.FindOrCreate(ctx, gz, false))
	assert.Equal(t, "gz", gz.CompressionTypeExtension)
}

func TestFindOrCreate(t *testing.T) {
	env := test.NewEnv(t)
	ctx := context.Background()

	t.Run("creates then finds", func(t *testing.T) {
		first := &model.Actor{ActorName: "scheduler"}
		require.NoError(t, env.Store.FindOrCreate(ctx, first, true))
		require.NotZero(t, first.ActorID)

		second := &model.Actor{ActorName: "scheduler"}
		require.NoError(t, env.Store.FindOrCreate(ctx, second, true))
		assert.Equal(t, first.ActorID, second.ActorID)

		n, err := env.Store.Count(ctx, &model.Actor{}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("missing without create", func(t *testing.T) {
		err := env.Store.FindOrCreate(ctx, &model.Tool{ToolName: "nifi"}, false)
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.ErrNotFound))
	})

	t.Run("ambiguous match", func(t *testing.T) {
		lt := &model.LocationType{LocationTypeName: model.LocationTypeLocal}
		require.NoError(t, env.Store.FindOrCreate(ctx, lt, false))
		require.NoError(t, env.Store.Create(ctx, &model.Location{LocationName: "landing", LocationPath: "/a/landing", LocationTypeID: lt.LocationTypeID}))
		require.NoError(t, env.Store.Create(ctx, &model.Location{LocationName: "landing", LocationPath: "/b/landing", LocationTypeID: lt.LocationTypeID}))

		err := env.Store.FindOrCreate(ctx, &model.Location{LocationName: "landing"}, false)
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.ErrAmbiguous))
	})

	t.Run("empty key", func(t *testing.T) {
		err := env.Store.FindOrCreate(ctx, &model.ErrorType{}, false)
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.ErrInvalidName))

		err = env.Store.FindOrCreate(ctx, &model.Actor{ActorName: ""}, true)
		assert.True(t, exception.IsKind(err, exception.ErrInvalidName))
		n, err := env.Store.Count(ctx, &model.Actor{}, map[string]interface{}{"actor_name": ""})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("inside a transaction", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, env.TxManager, func(ctx context.Context) error {
			row := &model.Source{SourceName: "crm"}
			if err := env.Store.FindOrCreate(ctx, row, true); err != nil {
				return err
			}
			return env.Store.FindOrCreate(ctx, &model.Source{SourceName: "crm"}, true)
		})
		require.NoError(t, err)
	})
}

func TestUpdateColumns_WritesOnlyNamedColumns(t *testing.T) {
	env := test.NewEnv(t)
	ctx := context.Background()
	runID := test.NewRun(t, env, "P1")

	stale := &model.ProcessTracking{ProcessTrackingID: runID}
	require.NoError(t, env.Store.Reload(ctx, stale, false))

	require.NoError(t, env.Store.UpdateColumns(ctx, &model.ProcessTracking{ProcessTrackingID: runID}, map[string]interface{}{
		"process_run_record_count": int64(12),
	}))
	// A column update from a stale copy leaves the count alone.
	require.NoError(t, env.Store.UpdateColumns(ctx, stale, map[string]interface{}{
		"is_latest_run": false,
	}))

	fresh := &model.ProcessTracking{ProcessTrackingID: runID}
	require.NoError(t, env.Store.Reload(ctx, fresh, false))
	assert.Equal(t, int64(12), fresh.ProcessRunRecordCount)
	assert.False(t, fresh.IsLatestRun)
	assert.Equal(t, int64(1), fresh.ProcessRunID)
}

func TestReload(t *testing.T) {
	env := test.NewEnv(t)
	ctx := context.Background()

	err := env.Store.Reload(ctx, &model.Extract{ExtractID: 404}, false)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrNotFound))

	runID := test.NewRun(t, env, "P1")
	err = tx.WithinTransaction(ctx, env.TxManager, func(ctx context.Context) error {
		row := &model.ProcessTracking{ProcessTrackingID: runID}
		if err := env.Store.Reload(ctx, row, true); err != nil {
			return err
		}
		assert.Equal(t, int64(1), row.ProcessRunID)
		return nil
	})
	require.NoError(t, err)
}

func TestReload_LocksRowForUpdate(t *testing.T) {
	store, mockDB, teardown := setupMockStore(t)
	defer teardown()

	mockDB.ExpectQuery("SELECT \\* FROM `process_tracking` WHERE `process_tracking`.`process_tracking_id` = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"process_tracking_id", "process_id", "process_run_id"}).AddRow(5, 2, 3))

	row := &model.ProcessTracking{ProcessTrackingID: 5}
	require.NoError(t, store.Reload(context.Background(), row, true))
	assert.Equal(t, int64(3), row.ProcessRunID)
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	env := test.NewEnv(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.WithinTransaction(ctx, env.TxManager, func(ctx context.Context) error {
		if err := env.Store.FindOrCreate(ctx, &model.Tool{ToolName: "spark"}, true); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = env.Store.FindOrCreate(ctx, &model.Tool{ToolName: "spark"}, false)
	assert.True(t, exception.IsKind(err, exception.ErrNotFound))
}

// fixture holds the rows shared by the query tests.
type fixture struct {
	running, completed, failed int64
	ready, loading, loaded     int64
	location                   *model.Location
}

func newFixture(t *testing.T, env *test.Env) *fixture {
	ctx := context.Background()
	f := &fixture{}
	statusID := func(name string) int64 {
		row := &model.ProcessStatus{ProcessStatusName: name}
		require.NoError(t, env.Store.FindOrCreate(ctx, row, false))
		return row.ProcessStatusID
	}
	extractStatusID := func(name string) int64 {
		row := &model.ExtractStatus{ExtractStatusName: name}
		require.NoError(t, env.Store.FindOrCreate(ctx, row, false))
		return row.ExtractStatusID
	}
	f.running = statusID(model.ProcessStatusRunning)
	f.completed = statusID(model.ProcessStatusCompleted)
	f.failed = statusID(model.ProcessStatusFailed)
	f.ready = extractStatusID(model.ExtractStatusReady)
	f.loading = extractStatusID(model.ExtractStatusLoading)
	f.loaded = extractStatusID(model.ExtractStatusLoaded)

	lt := &model.LocationType{LocationTypeName: model.LocationTypeLocal}
	require.NoError(t, env.Store.FindOrCreate(ctx, lt, false))
	f.location = &model.Location{LocationName: "landing_zone", LocationPath: "/data/landing_zone", LocationTypeID: lt.LocationTypeID}
	require.NoError(t, env.Store.Create(ctx, f.location))
	return f
}

func newProcess(t *testing.T, env *test.Env, name string) *model.Process {
	ctx := context.Background()
	pt := &model.ProcessType{ProcessTypeName: "extract"}
	require.NoError(t, env.Store.FindOrCreate(ctx, pt, true))
	tool := &model.Tool{ToolName: "airflow"}
	require.NoError(t, env.Store.FindOrCreate(ctx, tool, true))
	p := &model.Process{ProcessName: name, ProcessTypeID: pt.ProcessTypeID, ToolID: tool.ToolID}
	require.NoError(t, env.Store.Create(ctx, p))
	return p
}

func newRun(t *testing.T, env *test.Env, p *model.Process, runID, statusID int64, latest bool) *model.ProcessTracking {
	run := &model.ProcessTracking{
		ProcessID:               p.ProcessID,
		ProcessStatusID:         statusID,
		ProcessRunID:            runID,
		ProcessRunStartDateTime: time.Now(),
		ProcessRunActorID:       1,
		IsLatestRun:             latest,
	}
	require.NoError(t, env.Store.Create(context.Background(), run))
	return run
}

func newExtract(t *testing.T, env *test.Env, f *fixture, name string, statusID int64, registered time.Time) *model.Extract {
	e := &model.Extract{
		ExtractFilename:             name,
		LocationID:                  f.location.LocationID,
		ExtractStatusID:             statusID,
		ExtractRegistrationDateTime: registered,
	}
	require.NoError(t, env.Store.Create(context.Background(), e))
	return e
}

func TestRunQueries(t *testing.T) {
	env := test.NewEnv(t)
	f := newFixture(t, env)
	ctx := context.Background()

	child := newProcess(t, env, "load_orders")
	parentA := newProcess(t, env, "extract_orders")
	parentB := newProcess(t, env, "extract_customers")
	for _, parent := range []*model.Process{parentA, parentB} {
		require.NoError(t, env.Store.Create(ctx, &model.ProcessDependency{ParentProcessID: parent.ProcessID, ChildProcessID: child.ProcessID}))
	}

	latest, err := env.Store.LatestRun(ctx, child.ProcessID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	newRun(t, env, child, 1, f.completed, false)
	newRun(t, env, child, 2, f.completed, true)

	latest, err = env.Store.LatestRun(ctx, child.ProcessID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.ProcessRunID)

	blocking := []int64{f.running, f.failed}
	n, err := env.Store.CountBlockingParentProcesses(ctx, child.ProcessID, blocking)
	require.NoError(t, err)
	assert.Zero(t, n)

	newRun(t, env, parentA, 1, f.running, false)
	newRun(t, env, parentA, 2, f.failed, true)
	n, err = env.Store.CountBlockingParentProcesses(ctx, child.ProcessID, blocking)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	newRun(t, env, parentB, 1, f.completed, true)
	n, err = env.Store.CountBlockingParentProcesses(ctx, child.ProcessID, blocking)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, env.Store.ClearLatestRun(ctx, child.ProcessID))
	flagged, err := env.Store.Count(ctx, &model.ProcessTracking{}, map[string]interface{}{
		"process_id":    child.ProcessID,
		"is_latest_run": true,
	})
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestExtractQueries(t *testing.T) {
	env := test.NewEnv(t)
	f := newFixture(t, env)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	orders := newExtract(t, env, f, "orders_2026_03_01.csv", f.ready, base.Add(time.Hour))
	customers := newExtract(t, env, f, "customers_2026_03_01.csv", f.loaded, base)
	newExtract(t, env, f, "orders%x.csv", f.ready, base.Add(2*time.Hour))

	t.Run("filename contains", func(t *testing.T) {
		found, err := env.Store.FindExtracts(ctx, repository.ExtractFilter{FilenameContains: "2026_03_01"})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, customers.ExtractID, found[0].ExtractID)
		assert.Equal(t, orders.ExtractID, found[1].ExtractID)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		found, err := env.Store.FindExtracts(ctx, repository.ExtractFilter{FilenameContains: "%x"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "orders%x.csv", found[0].ExtractFilename)
	})

	t.Run("location and status", func(t *testing.T) {
		found, err := env.Store.FindExtracts(ctx, repository.ExtractFilter{LocationName: "landing_zone", StatusID: f.loaded})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, customers.ExtractID, found[0].ExtractID)

		found, err = env.Store.FindExtracts(ctx, repository.ExtractFilter{LocationPath: "/nowhere"})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("by process", func(t *testing.T) {
		p := newProcess(t, env, "extract_orders")
		run := newRun(t, env, p, 1, f.running, true)
		require.NoError(t, env.Store.Create(ctx, &model.ExtractProcess{
			ExtractID:                   orders.ExtractID,
			ProcessTrackingID:           run.ProcessTrackingID,
			ExtractProcessStatusID:      f.ready,
			ExtractProcessEventDateTime: base,
		}))

		found, err := env.Store.FindExtracts(ctx, repository.ExtractFilter{ProcessName: "extract_orders"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, orders.ExtractID, found[0].ExtractID)
	})

	t.Run("parents in blocking states", func(t *testing.T) {
		child := newExtract(t, env, f, "orders_enriched.csv", f.ready, base)
		for _, parent := range []*model.Extract{orders, customers} {
			require.NoError(t, env.Store.Create(ctx, &model.ExtractDependency{ParentExtractID: parent.ExtractID, ChildExtractID: child.ExtractID}))
		}

		parents, err := env.Store.FindParentExtracts(ctx, child.ExtractID, []int64{f.ready, f.loading})
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, orders.ExtractID, parents[0].ExtractID)
	})

	t.Run("location helpers", func(t *testing.T) {
		n, err := env.Store.CountLocationsWithNamePrefix(ctx, "landing")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = env.Store.CountLocationsWithNamePrefix(ctx, "landing_zone_")
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, env.Store.IncrementLocationFileCount(ctx, f.location.LocationID))
		require.NoError(t, env.Store.IncrementLocationFileCount(ctx, f.location.LocationID))
		loc := &model.Location{LocationPath: f.location.LocationPath}
		require.NoError(t, env.Store.FindOrCreate(ctx, loc, false))
		assert.Equal(t, int64(2), loc.LocationFileCount)
	})
}
