package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Write operations accepted by ExecuteUpdate.
const (
	OpCreate = "CREATE"
	OpSave   = "SAVE"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// gormExecutor implements tx.TxExecutor on top of a *gorm.DB that is either a
// plain session or an open transaction.
type gormExecutor struct {
	db *gorm.DB
}

// ExecuteUpdate implements tx.TxExecutor.
func (e gormExecutor) ExecuteUpdate(ctx context.Context, model interface{}, operation string, query interface{}) (int64, error) {
	db := e.db.WithContext(ctx)

	var result *gorm.DB
	switch operation {
	case OpCreate:
		result = db.Create(model)
	case OpSave:
		result = db.Save(model)
	case OpUpdate:
		db = db.Model(model)
		if query != nil {
			db = db.Where(query)
		}
		result = db.Updates(model)
	case OpDelete:
		if query != nil {
			db = db.Where(query)
		}
		result = db.Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteQueryAdvanced implements tx.TxExecutor.
func (e gormExecutor) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query interface{}, orderBy string, limit int) error {
	db := e.db.WithContext(ctx)
	if query != nil {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	// Find does not return ErrRecordNotFound; callers inspect the result length.
	return db.Find(target).Error
}

// Count implements tx.TxExecutor.
func (e gormExecutor) Count(ctx context.Context, model interface{}, query interface{}) (int64, error) {
	db := e.db.WithContext(ctx).Model(model)
	if query != nil {
		db = db.Where(query)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IsTableNotExistError implements tx.TxExecutor.
func (e gormExecutor) IsTableNotExistError(err error) bool {
	return isTableNotExistError(err)
}

// IsDuplicateKeyError implements tx.TxExecutor.
func (e gormExecutor) IsDuplicateKeyError(err error) bool {
	return isDuplicateKeyError(err)
}

// GetGormDB returns the underlying *gorm.DB.
func (e gormExecutor) GetGormDB() *gorm.DB {
	return e.db
}

// SessionProvider is implemented by the connections and transactions of this
// package. Repositories that need gorm's query builder for joins and
// subqueries type-assert to it.
type SessionProvider interface {
	GetGormDB() *gorm.DB
}

// Session returns the *gorm.DB for executor bound to ctx.
func Session(ctx context.Context, executor interface{}) (*gorm.DB, error) {
	sp, ok := executor.(SessionProvider)
	if !ok {
		return nil, fmt.Errorf("executor %T does not expose a gorm session", executor)
	}
	return sp.GetGormDB().WithContext(ctx), nil
}
