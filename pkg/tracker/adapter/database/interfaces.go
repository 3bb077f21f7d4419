// Package database defines the connection contracts of the metadata store.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
)

// DBConnection represents an open connection to the metadata store.
// It embeds tx.TxExecutor so repositories issue the same calls with or
// without an active transaction.
type DBConnection interface {
	tx.TxExecutor

	// Type returns the dialect of the connection ("postgres", "mysql", "sqlite").
	Type() string
	// Name returns the name the connection was registered under.
	Name() string
	// Close releases the connection pool.
	Close() error
	// RefreshConnection verifies the connection is still usable.
	RefreshConnection(ctx context.Context) error
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider opens and caches connections for one dialect.
type DBProvider interface {
	// GetConnection returns the connection with the given name, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes every connection opened by the provider.
	CloseAll() error
	// Type returns the dialect handled by the provider.
	Type() string
}

// DefaultConnectionName names the metadata store connection.
const DefaultConnectionName = "metadata"
