package exec

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// PostgresExecutor runs statements against a PostgreSQL warehouse
type PostgresExecutor struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
	logger  *logging.Logger
}

// NewPostgresExecutor opens a pooled connection using the configured DSN
func NewPostgresExecutor(ctx context.Context, cfg config.DatabaseConfig) (*PostgresExecutor, error) {
	if cfg.DSN == "" {
		return nil, errors.New(errors.ErrTypeConfig, "postgres DSN is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	return &PostgresExecutor{
		db:      db,
		timeout: cfg.StatementTimeoutDuration(),
		maxRows: cfg.MaxRows,
		logger:  logging.GetLogger().WithField("component", "exec.postgres"),
	}, nil
}

// DB exposes the underlying handle for schema introspection
func (e *PostgresExecutor) DB() *sql.DB {
	return e.db
}

// Execute runs the statement in a read-only transaction under the
// configured timeout and row cap
func (e *PostgresExecutor) Execute(ctx context.Context, sqlText string) (*Result, error) {
	result, err := runQueryReadOnly(ctx, e.db, applyLimit(sqlText, e.maxRows), e.timeout)
	if err != nil {
		return nil, err
	}

	e.logger.Debugf("Query returned %d rows in %s", result.RowCount(), result.Duration)

	return result, nil
}

// Explain returns the planner's output for the statement
func (e *PostgresExecutor) Explain(ctx context.Context, sqlText string) (*Result, error) {
	return runQueryReadOnly(ctx, e.db, "EXPLAIN "+stripTrailingSemicolons(sqlText), e.timeout)
}

// Ping verifies connectivity
func (e *PostgresExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the connection pool
func (e *PostgresExecutor) Close() error {
	return e.db.Close()
}

var _ Executor = (*PostgresExecutor)(nil)
