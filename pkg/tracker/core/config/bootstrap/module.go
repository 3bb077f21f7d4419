// Package bootstrap assembles the process tracker components into an Fx
// application for the CLI and for programs embedding the tracker.
package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	_ "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/sqlite"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/local"
	s3adapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/s3"
	config "github.com/tigerroll/processtracker/pkg/tracker/core/config"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/core/extract"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/core/process"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	infraMetrics "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/metrics"
	sqlstore "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/repository/sql"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 15 * time.Second
)

// Options returns the Fx options of a complete tracker application reading
// its configuration as described by opts.
func Options(opts config.LoadOptions) fx.Option {
	return fx.Options(
		fx.Supply(opts),
		logger.Module,
		config.Module,

		// Metadata store
		gormadapter.Module,
		sqlstore.Module,

		// Observability
		infraMetrics.Module,

		// Storage adapters contribute to the "storage_connections" group.
		storage.Module,
		local.Module,
		s3adapter.Module,

		// Engines
		lookup.Module,
		location.Module,
		extract.Module,
		process.Module,
	)
}

// Components are the tracker services available to a command.
type Components struct {
	fx.In

	Config    *config.Config
	Conn      database.DBConnection
	Store     repository.MetadataStore
	TxManager tx.TransactionManager
	Lookups   *lookup.Registry
	Locations *location.Resolver
	Extracts  *extract.Engine
	Processes *process.Engine
	Storage   *storage.Registry
}

// Run starts a tracker application, calls fn with its components and stops
// the application again. Stop hooks flush metrics and close the connections
// even when fn fails.
func Run(ctx context.Context, opts config.LoadOptions, fn func(ctx context.Context, c Components) error) (err error) {
	var c Components
	app := fx.New(Options(opts), fx.Populate(&c))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil {
			logger.Warnf("Failed to stop the application cleanly: %v", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()

	return fn(ctx, c)
}
