// Package database owns the Postgres pool, the schema and the mapping of
// Postgres errors onto the application's error taxonomy.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fadhriza/indobat/internal/apperr"
)

//go:embed schema.sql
var schema string

// Connect opens a pool and verifies the server is reachable.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse pg url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// SetLockTimeout bounds how long the current transaction waits for row locks.
func SetLockTimeout(ctx context.Context, tx pgx.Tx, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds()))
	return err
}

// WithTx runs fn in a READ COMMITTED transaction whose row-lock waits are
// bounded by lockTimeout. fn's error rolls the transaction back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := SetLockTimeout(ctx, tx, lockTimeout); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReadSnapshot runs fn in a read-only REPEATABLE READ transaction so every
// statement in it sees the same committed state.
func ReadSnapshot(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LikePattern escapes LIKE wildcards so s matches literally as a substring.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	classDataException       = "22"
)

// Classify maps a storage error onto apperr. Errors already in the taxonomy
// pass through; anything unrecognised is transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		apperr.ErrInvalidInput, apperr.ErrProductNotFound, apperr.ErrOrderNotFound,
		apperr.ErrInsufficientStock, apperr.ErrProductInUse, apperr.ErrDuplicateRequest,
		apperr.ErrConflict, apperr.ErrTransient,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %w", apperr.ErrConflict, err)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", apperr.ErrDuplicateRequest, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %w", apperr.ErrProductInUse, err)
		case codeCheckViolation:
			return apperr.Invalid("%s", pgErr.ConstraintName)
		}
		// Class 22 (data exception): a value the columns cannot hold. Retrying
		// cannot succeed.
		if strings.HasPrefix(pgErr.Code, classDataException) {
			return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, pgErr.Message)
		}
	}
	return apperr.Transient(err)
}
