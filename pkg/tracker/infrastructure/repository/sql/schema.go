package sql

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

const (
	postgresMigrationsPath = "migrations/postgres"
	migrationsTable        = "process_tracker_schema_migrations"
	// migratedSchema is the schema the embedded postgres migrations create.
	migratedSchema = "process_tracker"
)

// Setup creates the tracker tables and inserts the seed rows.
//
// postgres stores using the default schema are migrated with the embedded SQL
// migrations; every other configuration is created with gorm's AutoMigrate.
// Setup is idempotent.
func Setup(ctx context.Context, conn database.DBConnection) error {
	const op = "sql.Setup"

	cfg := conn.Config()
	if cfg.Type == "postgres" && cfg.Schema == migratedSchema {
		if err := migratePostgres(conn); err != nil {
			return storeError(op, "failed to migrate postgres schema", err)
		}
	} else if err := autoMigrate(ctx, conn); err != nil {
		return storeError(op, "failed to create tracker tables", err)
	}

	if err := Seed(ctx, NewSQLMetadataStore(conn)); err != nil {
		return err
	}
	logger.Infof("Data store initialized (%s).", cfg.Type)
	return nil
}

func migratePostgres(conn database.DBConnection) error {
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return err
	}
	source, err := iofs.New(postgresMigrations, postgresMigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", postgresMigrationsPath, err)
	}
	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Infof("Executing migration 'up' (Path: %s, Table: %s)", postgresMigrationsPath, migrationsTable)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func autoMigrate(ctx context.Context, conn database.DBConnection) error {
	db, err := gormadapter.Session(ctx, conn)
	if err != nil {
		return err
	}
	cfg := conn.Config()
	if cfg.Type == "postgres" && cfg.Schema != "" {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", cfg.Schema)).Error; err != nil {
			return err
		}
	}
	return db.AutoMigrate(model.AllEntities()...)
}

// Seed inserts the protected statuses and error type, the location types, and
// the default filetypes and compression types. Existing rows are kept.
func Seed(ctx context.Context, store repository.MetadataStore) error {
	var rows []interface{}
	for _, name := range model.ProtectedProcessStatuses {
		rows = append(rows, &model.ProcessStatus{ProcessStatusName: name})
	}
	for _, name := range model.ProtectedExtractStatuses {
		rows = append(rows, &model.ExtractStatus{ExtractStatusName: name})
	}
	for _, name := range model.ProtectedErrorTypes {
		rows = append(rows, &model.ErrorType{ErrorTypeName: name})
	}
	rows = append(rows,
		&model.LocationType{LocationTypeName: model.LocationTypeLocal},
		&model.LocationType{LocationTypeName: model.LocationTypeS3},
	)

	for _, row := range rows {
		if err := store.FindOrCreate(ctx, row, true); err != nil {
			return err
		}
	}

	for _, ft := range model.SeedFileTypes {
		row := &model.FileType{FileTypeName: ft.Name}
		if err := store.FindOrCreate(ctx, row, false); err == nil {
			continue
		} else if !exception.IsKind(err, exception.ErrNotFound) {
			return err
		}
		row.Delimiter, row.QuoteChar, row.EscapeChar = ft.Delimiter, ft.Quote, ft.Escape
		if err := store.FindOrCreate(ctx, row, true); err != nil {
			return err
		}
	}
	for _, ct := range model.SeedCompressionTypes {
		row := &model.CompressionType{CompressionTypeName: ct.CompressionTypeName}
		if err := store.FindOrCreate(ctx, row, false); err == nil {
			continue
		} else if !exception.IsKind(err, exception.ErrNotFound) {
			return err
		}
		row.CompressionTypeExtension = ct.CompressionTypeExtension
		if err := store.FindOrCreate(ctx, row, true); err != nil {
			return err
		}
	}
	return nil
}
