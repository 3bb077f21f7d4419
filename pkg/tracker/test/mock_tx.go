// Package test provides shared fixtures for the process tracker tests.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
type MockTx struct {
	mock.Mock
}

// ExecuteUpdate mocks tx.TxExecutor.ExecuteUpdate.
func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, query interface{}) (int64, error) {
	args := m.Called(ctx, model, operation, query)
	return args.Get(0).(int64), args.Error(1)
}

// ExecuteQueryAdvanced mocks tx.TxExecutor.ExecuteQueryAdvanced.
func (m *MockTx) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query interface{}, orderBy string, limit int) error {
	args := m.Called(ctx, target, query, orderBy, limit)
	return args.Error(0)
}

// Count mocks tx.TxExecutor.Count.
func (m *MockTx) Count(ctx context.Context, model interface{}, query interface{}) (int64, error) {
	args := m.Called(ctx, model, query)
	return args.Get(0).(int64), args.Error(1)
}

// IsTableNotExistError mocks tx.TxExecutor.IsTableNotExistError.
func (m *MockTx) IsTableNotExistError(err error) bool {
	args := m.Called(err)
	return args.Bool(0)
}

// IsDuplicateKeyError mocks tx.TxExecutor.IsDuplicateKeyError.
func (m *MockTx) IsDuplicateKeyError(err error) bool {
	args := m.Called(err)
	return args.Bool(0)
}

// Savepoint mocks tx.Tx.Savepoint.
func (m *MockTx) Savepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// RollbackToSavepoint mocks tx.Tx.RollbackToSavepoint.
func (m *MockTx) RollbackToSavepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockTxManager is a mock implementation of the tx.TransactionManager interface.
type MockTxManager struct {
	mock.Mock
}

// Begin mocks tx.TransactionManager.Begin.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Commit mocks tx.TransactionManager.Commit.
func (m *MockTxManager) Commit(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

// Rollback mocks tx.TransactionManager.Rollback.
func (m *MockTxManager) Rollback(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}
