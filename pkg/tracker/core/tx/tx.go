// Package tx provides the transaction abstraction used by the metadata store.
// A Tx travels in the context so every store call made by an engine during a
// high-level operation joins the same unit of work.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// TxExecutor defines the data operations available both on a plain connection
// and inside a transaction.
type TxExecutor interface {
	// ExecuteUpdate performs a write on model.
	//
	// operation is one of "CREATE", "SAVE" (write every column), "UPDATE"
	// (write non-zero columns) or "DELETE". query narrows UPDATE and DELETE and
	// may be a map of column values or a model whose non-zero fields are matched.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, query interface{}) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced loads rows matching query into target, with optional ordering and limit.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query interface{}, orderBy string, limit int) error

	// Count counts the rows of model matching query.
	Count(ctx context.Context, model interface{}, query interface{}) (int64, error)

	// IsTableNotExistError reports whether err means the tracker tables have not been set up.
	IsTableNotExistError(err error) bool

	// IsDuplicateKeyError reports whether err is a unique index violation.
	IsDuplicateKeyError(err error) bool
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor

	// Savepoint creates a savepoint within the current transaction.
	Savepoint(name string) error

	// RollbackToSavepoint undoes the changes made after the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits the transaction.
	Commit(tx Tx) error
	// Rollback rolls back the transaction.
	Rollback(tx Tx) error
}

type txContextKey struct{}

// WithTx returns a context carrying t.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, t)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txContextKey{}).(Tx)
	return t, ok
}

// WithinTransaction runs fn inside a transaction.
//
// If ctx already carries a transaction, fn joins it and the outermost caller
// decides the outcome. Otherwise a new transaction is started, committed when
// fn returns nil and rolled back when fn returns an error or panics.
func WithinTransaction(ctx context.Context, tm TransactionManager, fn func(ctx context.Context) error) (err error) {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	t, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tm.Rollback(t)
			panic(p)
		}
	}()

	if err = fn(WithTx(ctx, t)); err != nil {
		if rbErr := tm.Rollback(t); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tm.Commit(t)
}
