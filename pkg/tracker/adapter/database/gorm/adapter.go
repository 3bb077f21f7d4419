package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	gormExecutor
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

// NewGormDBAdapter wraps an opened *gorm.DB.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return &GormDBAdapter{
		gormExecutor: gormExecutor{db: db},
		sqlDB:        sqlDB,
		cfg:          cfg,
		name:         name,
	}, nil
}

var _ database.DBConnection = (*GormDBAdapter)(nil)

// Close implements database.DBConnection.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB == nil {
		return nil
	}
	logger.Debugf("Closing database connection '%s'...", a.name)
	return a.sqlDB.Close()
}

// Type implements database.DBConnection.
func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

// Name implements database.DBConnection.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// RefreshConnection implements database.DBConnection.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}
