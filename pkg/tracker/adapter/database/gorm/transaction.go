package gorm

import (
	"context"
	"database/sql"
	"fmt"

	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
)

// GormTxAdapter implements tx.Tx over an open gorm transaction.
type GormTxAdapter struct {
	gormExecutor
}

// Savepoint implements tx.Tx.
func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

// RollbackToSavepoint implements tx.Tx.
func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// GormTransactionManager implements tx.TransactionManager for one connection.
type GormTransactionManager struct {
	conn *GormDBAdapter
}

// NewGormTransactionManager creates a transaction manager bound to conn.
func NewGormTransactionManager(conn *GormDBAdapter) tx.TransactionManager {
	return &GormTransactionManager{conn: conn}
}

// Begin implements tx.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := m.conn.db.WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{gormExecutor: gormExecutor{db: gormTx}}, nil
}

// Commit implements tx.TransactionManager.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Commit().Error
}

// Rollback implements tx.TransactionManager.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Rollback().Error
}
