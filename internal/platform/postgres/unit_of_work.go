package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories issue all queries through it so the same code runs inside
// and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey struct{}

// WithTx stores an open transaction in the context.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFrom returns the transaction stored in ctx, if any.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx, ok
}

// UnitOfWork runs a function with all repository calls inside one
// database transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork returns a UnitOfWork backed by serializable transactions.
func NewUnitOfWork(db *sql.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

// RunInTx begins a serializable transaction, stores it in the context passed
// to fn, and commits when fn returns nil. Any error rolls the whole unit back.
// Nested calls reuse the ambient transaction.
func (u *unitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QuerierFor resolves the Querier repositories should use: the ambient
// transaction when one is present, otherwise the pool.
func QuerierFor(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
