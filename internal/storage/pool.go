// Package storage provides the PostgreSQL record store for Kanshi.
//
// It manages connection pooling via pgxpool, COPY-based batch ingestion for
// execution records, and windowed query methods. The store is the "live"
// data source; when it is unavailable the dashboard service falls back to
// the synthetic generator.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool through NewFromPool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// DB wraps a connection pool with the record store query methods.
type DB struct {
	pool   Pool
	logger *slog.Logger
}

// New connects a pool to dsn and verifies the connection.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// NewFromPool wraps an existing pool. Used by tests.
func NewFromPool(pool Pool, logger *slog.Logger) *DB {
	return &DB{pool: pool, logger: logger}
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
