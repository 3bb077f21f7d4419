// Package sql implements the metadata store gateway on gorm.
package sql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// SQLMetadataStore implements repository.MetadataStore.
type SQLMetadataStore struct {
	conn database.DBConnection
}

// NewSQLMetadataStore creates a gateway over conn.
func NewSQLMetadataStore(conn database.DBConnection) repository.MetadataStore {
	return &SQLMetadataStore{conn: conn}
}

var _ repository.MetadataStore = (*SQLMetadataStore)(nil)

// getTxExecutor returns the transaction carried by ctx, or the plain connection.
func (s *SQLMetadataStore) getTxExecutor(ctx context.Context) tx.TxExecutor {
	if t, ok := tx.FromContext(ctx); ok {
		return t
	}
	return s.conn
}

// session returns a gorm session bound to the current executor.
func (s *SQLMetadataStore) session(ctx context.Context) (*gorm.DB, error) {
	return gormadapter.Session(ctx, s.getTxExecutor(ctx))
}

func storeError(op, message string, err error) error {
	return exception.Wrap(exception.ErrStore, op, message, err)
}

func entityName(row interface{}) string {
	t := reflect.TypeOf(row)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t.Name()
}

// FindOrCreate implements repository.MetadataStore.
func (s *SQLMetadataStore) FindOrCreate(ctx context.Context, row interface{}, create bool) error {
	const op = "SQLMetadataStore.FindOrCreate"

	rv := reflect.ValueOf(row)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return exception.Newf(exception.ErrStore, op, "row must be a pointer to a struct, got %T", row)
	}
	// The lookup key is captured before anything is loaded into row.
	key := reflect.New(rv.Elem().Type())
	key.Elem().Set(rv.Elem())
	// gorm drops zero fields from struct conditions; an empty key would match every row.
	if !hasKey(key.Elem()) {
		return exception.Newf(exception.ErrInvalidName, op, "%s lookup has no attributes set", entityName(row))
	}

	found, err := s.findOne(ctx, row, key.Interface())
	if err != nil || found {
		return err
	}
	if !create {
		return exception.Newf(exception.ErrNotFound, op, "%s matching %s not found", entityName(row), describe(key.Interface()))
	}

	executor := s.getTxExecutor(ctx)
	t, inTx := executor.(tx.Tx)
	savepoint := ""
	if inTx {
		savepoint = "find_or_create_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		if err := t.Savepoint(savepoint); err != nil {
			return storeError(op, "failed to create savepoint", err)
		}
	}

	_, err = executor.ExecuteUpdate(ctx, row, gormadapter.OpCreate, nil)
	if err == nil {
		logger.Debugf("%s: created %s %s", op, entityName(row), describe(row))
		return nil
	}
	if !executor.IsDuplicateKeyError(err) {
		return storeError(op, fmt.Sprintf("failed to insert %s", entityName(row)), err)
	}

	// Another session inserted the same natural key first; read its row.
	logger.Debugf("%s: concurrent insert of %s detected, retrying lookup", op, entityName(row))
	if inTx {
		if rbErr := t.RollbackToSavepoint(savepoint); rbErr != nil {
			return storeError(op, "failed to roll back to savepoint", rbErr)
		}
	}
	rv.Elem().Set(key.Elem())
	found, err = s.findOne(ctx, row, key.Interface())
	if err != nil {
		return err
	}
	if !found {
		return storeError(op, fmt.Sprintf("%s vanished after duplicate key error", entityName(row)), err)
	}
	return nil
}

// findOne loads the single row matching key into row.
func (s *SQLMetadataStore) findOne(ctx context.Context, row interface{}, key interface{}) (bool, error) {
	const op = "SQLMetadataStore.FindOrCreate"

	rowType := reflect.TypeOf(row).Elem()
	matches := reflect.New(reflect.SliceOf(rowType))

	executor := s.getTxExecutor(ctx)
	if err := executor.ExecuteQueryAdvanced(ctx, matches.Interface(), key, "", 2); err != nil {
		return false, storeError(op, fmt.Sprintf("failed to look up %s", entityName(row)), err)
	}

	switch matches.Elem().Len() {
	case 0:
		return false, nil
	case 1:
		reflect.ValueOf(row).Elem().Set(matches.Elem().Index(0))
		return true, nil
	default:
		return false, exception.Newf(exception.ErrAmbiguous, op, "more than one %s matches %s", entityName(row), describe(key))
	}
}

// hasKey reports whether the struct v has an exported non-zero field.
func hasKey(v reflect.Value) bool {
	for i := 0; i < v.NumField(); i++ {
		if v.Type().Field(i).IsExported() && !v.Field(i).IsZero() {
			return true
		}
	}
	return false
}

// describe renders the non-zero fields of a row for messages.
func describe(row interface{}) string {
	v := reflect.Indirect(reflect.ValueOf(row))
	if v.Kind() != reflect.Struct {
		return fmt.Sprintf("%v", row)
	}
	var parts []string
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !v.Type().Field(i).IsExported() || f.IsZero() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", v.Type().Field(i).Name, reflect.Indirect(f).Interface()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Find implements repository.MetadataStore.
func (s *SQLMetadataStore) Find(ctx context.Context, dest interface{}, query interface{}, orderBy string, limit int) error {
	const op = "SQLMetadataStore.Find"
	if err := s.getTxExecutor(ctx).ExecuteQueryAdvanced(ctx, dest, query, orderBy, limit); err != nil {
		return storeError(op, fmt.Sprintf("failed to query %s", entityName(dest)), err)
	}
	return nil
}

// Count implements repository.MetadataStore.
func (s *SQLMetadataStore) Count(ctx context.Context, model interface{}, query interface{}) (int64, error) {
	const op = "SQLMetadataStore.Count"
	n, err := s.getTxExecutor(ctx).Count(ctx, model, query)
	if err != nil {
		return 0, storeError(op, fmt.Sprintf("failed to count %s", entityName(model)), err)
	}
	return n, nil
}

// Create implements repository.MetadataStore.
func (s *SQLMetadataStore) Create(ctx context.Context, row interface{}) error {
	const op = "SQLMetadataStore.Create"
	if _, err := s.getTxExecutor(ctx).ExecuteUpdate(ctx, row, gormadapter.OpCreate, nil); err != nil {
		return storeError(op, fmt.Sprintf("failed to insert %s", entityName(row)), err)
	}
	return nil
}

// Update implements repository.MetadataStore.
func (s *SQLMetadataStore) Update(ctx context.Context, row interface{}) error {
	const op = "SQLMetadataStore.Update"
	if _, err := s.getTxExecutor(ctx).ExecuteUpdate(ctx, row, gormadapter.OpSave, nil); err != nil {
		return storeError(op, fmt.Sprintf("failed to update %s", entityName(row)), err)
	}
	return nil
}

// UpdateColumns implements repository.MetadataStore.
func (s *SQLMetadataStore) UpdateColumns(ctx context.Context, row interface{}, columns map[string]interface{}) error {
	const op = "SQLMetadataStore.UpdateColumns"
	if len(columns) == 0 {
		return nil
	}
	db, err := s.session(ctx)
	if err != nil {
		return storeError(op, "failed to open session", err)
	}
	// The primary key of row becomes the WHERE clause; a zero key is rejected by gorm.
	if err := db.Model(row).UpdateColumns(columns).Error; err != nil {
		return storeError(op, fmt.Sprintf("failed to update %s", entityName(row)), err)
	}
	return nil
}

// Reload implements repository.MetadataStore.
func (s *SQLMetadataStore) Reload(ctx context.Context, row interface{}, lock bool) error {
	const op = "SQLMetadataStore.Reload"
	db, err := s.session(ctx)
	if err != nil {
		return storeError(op, "failed to open session", err)
	}
	// SQLite has no row locks; its writers are serialized by the database lock.
	if lock && db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err = db.Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return exception.Newf(exception.ErrNotFound, op, "%s %s not found", entityName(row), describe(row))
	}
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to reload %s", entityName(row)), err)
	}
	return nil
}

// Delete implements repository.MetadataStore.
func (s *SQLMetadataStore) Delete(ctx context.Context, row interface{}) error {
	const op = "SQLMetadataStore.Delete"
	if _, err := s.getTxExecutor(ctx).ExecuteUpdate(ctx, row, gormadapter.OpDelete, nil); err != nil {
		return storeError(op, fmt.Sprintf("failed to delete %s", entityName(row)), err)
	}
	return nil
}
