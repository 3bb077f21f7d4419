// Package postgres registers the PostgreSQL dialector used for the "postgresql" store type.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the key/value DSN for PostgreSQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "prefer"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}
