// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/metrics"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection pool. It is the only
// component allowed to hold raw database connections; every multi-step write
// in the backend goes through WithTransaction.
type PostgresClient struct {
	DB *sql.DB

	slowThreshold time.Duration
	slowLog       *SlowQueryLog
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	return &PostgresClient{
		DB:            db,
		slowThreshold: time.Duration(cfg.SlowQueryMS) * time.Millisecond,
		slowLog:       NewSlowQueryLog(cfg.SlowQueryCapacity),
	}, nil
}

// NewPostgresWithDB wraps an existing pool, primarily for tests running
// against sqlmock.
func NewPostgresWithDB(db *sql.DB, slowThreshold time.Duration, slowCapacity int) *PostgresClient {
	return &PostgresClient{
		DB:            db,
		slowThreshold: slowThreshold,
		slowLog:       NewSlowQueryLog(slowCapacity),
	}
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// PoolStats reports pool utilization for the health endpoint.
type PoolStats struct {
	Open            int           `json:"open"`
	InUse           int           `json:"inUse"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"waitCount"`
	WaitDuration    time.Duration `json:"waitDuration"`
	MaxOpen         int           `json:"maxOpen"`
	MaxIdleClosed   int64         `json:"maxIdleClosed"`
	MaxLifetimeDone int64         `json:"maxLifetimeClosed"`
}

// HealthCheck executes a trivial round-trip query and reports pool
// utilization. Failing this at startup is fatal; later failures put the
// service in degraded mode but do not stop it.
func (c *PostgresClient) HealthCheck(ctx context.Context) (PoolStats, error) {
	var one int
	err := c.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one)

	s := c.DB.Stats()
	stats := PoolStats{
		Open:            s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
		MaxOpen:         s.MaxOpenConnections,
		MaxIdleClosed:   s.MaxIdleClosed,
		MaxLifetimeDone: s.MaxLifetimeClosed,
	}

	if err != nil {
		return stats, fmt.Errorf("health check query failed: %w", err)
	}
	return stats, nil
}

// WithTransaction acquires a connection, begins a transaction, executes fn,
// commits on normal return and rolls back on error or panic. This is the only
// sanctioned way multi-step writes are performed.
func (c *PostgresClient) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TrackQuery records the duration of a named operation. Operations over the
// slow threshold land in the ring buffer and increment the slow query counter.
// Call with the start time, typically via defer:
//
//	defer c.TrackQuery("shifts.fill", time.Now())
func (c *PostgresClient) TrackQuery(name string, start time.Time) {
	elapsed := time.Since(start)
	if elapsed < c.slowThreshold {
		return
	}
	c.slowLog.Record(SlowQuery{
		Name:       name,
		Duration:   elapsed,
		OccurredAt: time.Now().UTC(),
	})
	metrics.SlowQueries.WithLabelValues(name).Inc()
}

// SlowQueries returns a snapshot of the recorded slow operations, newest last.
// The buffer is memory-only and resets on restart; it is diagnostics, not audit.
func (c *PostgresClient) SlowQueries() []SlowQuery {
	return c.slowLog.Snapshot()
}

// Query executes a query that returns rows
func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}

// GetDB returns the underlying *sql.DB for compatibility
func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
