package exec

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// DuckDBExecutor runs statements against a local DuckDB file
type DuckDBExecutor struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
	logger  *logging.Logger
}

// NewDuckDBExecutor opens the database file with connection pooling.
// File-backed databases are seeded over a short-lived read-write handle
// and then reopened read-only, so queries run without write privileges.
// An empty path opens an in-memory database, which stays read-write
// because it cannot be reopened
func NewDuckDBExecutor(ctx context.Context, cfg config.DatabaseConfig) (*DuckDBExecutor, error) {
	path := cfg.Path
	dsn := path

	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to create database directory")
		}

		if err := prepareWarehouse(ctx, path); err != nil {
			return nil, err
		}

		dsn = path + "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	if path == "" {
		if err := seedDemo(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &DuckDBExecutor{
		db:      db,
		timeout: cfg.StatementTimeoutDuration(),
		maxRows: cfg.MaxRows,
		logger:  logging.GetLogger().WithField("component", "exec.duckdb"),
	}, nil
}

// prepareWarehouse ensures the demo tables exist, holding the one
// read-write handle this process ever opens on the file
func prepareWarehouse(ctx context.Context, path string) error {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}
	defer func() { _ = db.Close() }()

	return seedDemo(ctx, db)
}

// DB exposes the underlying handle for schema introspection
func (e *DuckDBExecutor) DB() *sql.DB {
	return e.db
}

// Execute runs the statement under the configured timeout and row cap
func (e *DuckDBExecutor) Execute(ctx context.Context, sqlText string) (*Result, error) {
	return e.run(ctx, applyLimit(sqlText, e.maxRows))
}

// Explain returns DuckDB's plan for the statement
func (e *DuckDBExecutor) Explain(ctx context.Context, sqlText string) (*Result, error) {
	return e.run(ctx, "EXPLAIN "+stripTrailingSemicolons(sqlText))
}

func (e *DuckDBExecutor) run(ctx context.Context, sqlText string) (*Result, error) {
	result, err := runQuery(ctx, e.db, sqlText, e.timeout)
	if err != nil {
		return nil, err
	}

	e.logger.Debugf("Query returned %d rows in %s", result.RowCount(), result.Duration)

	return result, nil
}

// Ping verifies connectivity
func (e *DuckDBExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the connection pool
func (e *DuckDBExecutor) Close() error {
	return e.db.Close()
}

// seedDemo creates the demo warehouse tables with sample rows when they
// do not already exist. Used for first runs against an empty database
func seedDemo(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			price DECIMAL(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY,
			date DATE NOT NULL,
			country VARCHAR NOT NULL,
			product_id INTEGER NOT NULL,
			revenue DECIMAL(12,2) NOT NULL,
			quantity INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrTypeDatabase, "failed to create demo table")
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to check demo data")
	}

	if count > 0 {
		return nil
	}

	seed := []string{
		`INSERT INTO products VALUES
			(1, 'Laptop', 'Electronics', 1200.00),
			(2, 'Headphones', 'Electronics', 150.00),
			(3, 'Desk Chair', 'Furniture', 320.00),
			(4, 'Notebook', 'Stationery', 4.50)`,
		`INSERT INTO sales VALUES
			(1, '2026-01-05', 'US', 1, 2400.00, 2),
			(2, '2026-01-12', 'DE', 2, 450.00, 3),
			(3, '2026-02-03', 'US', 3, 320.00, 1),
			(4, '2026-02-18', 'FR', 1, 1200.00, 1),
			(5, '2026-03-07', 'DE', 4, 45.00, 10),
			(6, '2026-03-21', 'US', 2, 300.00, 2)`,
	}

	for _, stmt := range seed {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrTypeDatabase, "failed to seed demo data")
		}
	}

	logging.Infof("Seeded demo warehouse with sample data")

	return nil
}

var _ Executor = (*DuckDBExecutor)(nil)
