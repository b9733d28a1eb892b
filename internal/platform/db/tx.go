package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const queryableKey contextKey = "db_queryable"

// Queryable is the subset of pgx operations shared by *pgxpool.Pool,
// *pgxpool.Conn and pgx.Tx. Repositories accept whichever the context
// carries, so the same code runs inside and outside a transaction.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithQueryable binds q to the context so repository calls made with the
// returned context run against it instead of the shared pool.
func WithQueryable(ctx context.Context, q Queryable) context.Context {
	return context.WithValue(ctx, queryableKey, q)
}

// QueryableFromContext retrieves the bound Queryable, or nil if the context
// carries none.
func QueryableFromContext(ctx context.Context) Queryable {
	q, _ := ctx.Value(queryableKey).(Queryable)
	return q
}

const serializationFailure = "40001"

const maxTxRetries = 3

// WithSerializableTx runs fn inside a SERIALIZABLE transaction. The
// transaction is bound to fn's context, so repository calls participate in
// it automatically. Serialization failures are retried up to maxTxRetries
// times; any other error rolls back and is returned as-is.
func WithSerializableTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		lastErr = runTx(ctx, pool, fn)
		if lastErr == nil || !isSerializationFailure(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", lastErr)
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithQueryable(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, optionally scoped to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
