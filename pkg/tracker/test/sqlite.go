package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	_ "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/sqlite"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	sqlstore "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/repository/sql"
)

// Env is an isolated, fully set up metadata store.
type Env struct {
	Conn      *gormadapter.GormDBAdapter
	Store     repository.MetadataStore
	TxManager tx.TransactionManager
}

// SQLiteConfig returns the configuration of a private in-memory sqlite database.
// A single pooled connection keeps the database alive for the whole test.
func SQLiteConfig() dbconfig.DatabaseConfig {
	return dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	}
}

// NewEnv opens a fresh in-memory store, creates the tables and seeds them.
func NewEnv(t testing.TB) *Env {
	t.Helper()

	provider := gormadapter.NewBaseProvider(SQLiteConfig())
	conn, err := provider.GetGormConnection("metadata")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.CloseAll() })

	require.NoError(t, sqlstore.Setup(context.Background(), conn))

	return &Env{
		Conn:      conn,
		Store:     sqlstore.NewSQLMetadataStore(conn),
		TxManager: gormadapter.NewGormTransactionManager(conn),
	}
}

// NewRun inserts a process named processName with one running run and
// returns the run's process_tracking_id.
func NewRun(t testing.TB, env *Env, processName string) int64 {
	t.Helper()
	ctx := context.Background()

	pt := &model.ProcessType{ProcessTypeName: "extract"}
	require.NoError(t, env.Store.FindOrCreate(ctx, pt, true))
	tool := &model.Tool{ToolName: "test"}
	require.NoError(t, env.Store.FindOrCreate(ctx, tool, true))
	actor := &model.Actor{ActorName: "test"}
	require.NoError(t, env.Store.FindOrCreate(ctx, actor, true))
	running := &model.ProcessStatus{ProcessStatusName: model.ProcessStatusRunning}
	require.NoError(t, env.Store.FindOrCreate(ctx, running, false))

	p := &model.Process{ProcessName: processName, ProcessTypeID: pt.ProcessTypeID, ToolID: tool.ToolID}
	require.NoError(t, env.Store.FindOrCreate(ctx, p, true))
	run := &model.ProcessTracking{
		ProcessID:               p.ProcessID,
		ProcessStatusID:         running.ProcessStatusID,
		ProcessRunID:            1,
		ProcessRunStartDateTime: time.Now(),
		ProcessRunActorID:       actor.ActorID,
		IsLatestRun:             true,
	}
	require.NoError(t, env.Store.Create(ctx, run))
	return run.ProcessTrackingID
}
