// Package sqlite registers the SQLite dialector.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the SQLite file path, or the DSN unchanged.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}
