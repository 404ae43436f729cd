package exec

import (
	"context"
	"database/sql"

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/errors"
)

// OpenExecutor builds the executor for the configured driver
func OpenExecutor(ctx context.Context, cfg config.DatabaseConfig) (Executor, error) {
	switch cfg.Driver {
	case "duckdb":
		return NewDuckDBExecutor(ctx, cfg)
	case "postgres":
		return NewPostgresExecutor(ctx, cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported database driver: %s", cfg.Driver)
	}
}

// UnderlyingDB returns the database handle behind an executor, or nil
// when the executor does not expose one
func UnderlyingDB(e Executor) *sql.DB {
	type dbProvider interface {
		DB() *sql.DB
	}

	if p, ok := e.(dbProvider); ok {
		return p.DB()
	}

	return nil
}
