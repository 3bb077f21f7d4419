package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
)

// NewConnection opens the metadata connection and closes the provider on shutdown.
func NewConnection(lc fx.Lifecycle, provider *BaseProvider) (*GormDBAdapter, error) {
	conn, err := provider.GetGormConnection(database.DefaultConnectionName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.CloseAll()
		},
	})
	return conn, nil
}

// Module exports the gorm connection, provider and transaction manager to Fx.
// Dialects are registered by importing the postgres, mysql and sqlite subpackages.
var Module = fx.Options(
	fx.Provide(func(cfg dbconfig.DatabaseConfig) *BaseProvider { return NewBaseProvider(cfg) }),
	fx.Provide(NewConnection),
	fx.Provide(func(conn *GormDBAdapter) database.DBConnection { return conn }),
	fx.Provide(NewGormTransactionManager),
)
