// Package exec runs validated SQL against the configured warehouse and
// returns fully materialized results.
package exec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sqlsage/sqlsage/internal/errors"
)

// Result holds a fully materialized query result
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowCount returns the number of rows in the result
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Executor runs a single read-only statement
type Executor interface {
	// Execute runs the statement and materializes every row up to the
	// configured row cap
	Execute(ctx context.Context, sqlText string) (*Result, error)

	// Explain returns the engine's plan for the statement without
	// running it
	Explain(ctx context.Context, sqlText string) (*Result, error)

	// Ping verifies connectivity
	Ping(ctx context.Context) error

	// Close releases the underlying pool
	Close() error
}

// applyLimit wraps the statement so the engine never returns more than
// maxRows rows. Statements that already carry a LIMIT are wrapped
// anyway, the outer limit only tightens the cap
func applyLimit(sqlText string, maxRows int) string {
	if maxRows <= 0 {
		return sqlText
	}

	return fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", stripTrailingSemicolons(sqlText), maxRows)
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}

	return trimmed
}

// queryer abstracts the handle a statement runs on, either a pool or a
// transaction
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// runQuery executes the statement under a deadline and materializes
// every row. Shared by all engines
func runQuery(ctx context.Context, db queryer, sqlText string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return materialize(ctx, db, sqlText)
}

// runQueryReadOnly executes the statement inside a read-only transaction
// so a statement that slipped past validation still cannot write
func runQueryReadOnly(ctx context.Context, db *sql.DB, sqlText string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrTypeTimeout, "statement timed out")
		}

		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to begin read-only transaction")
	}
	defer func() { _ = tx.Rollback() }()

	return materialize(ctx, tx, sqlText)
}

func materialize(ctx context.Context, db queryer, sqlText string) (*Result, error) {
	start := time.Now()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrTypeTimeout, "statement timed out")
		}

		return nil, errors.Wrap(err, errors.ErrTypeExecution, "query failed")
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read columns")
	}

	resultRows := make([][]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan row")
		}

		resultRows = append(resultRows, normalizeValues(values))
	}

	if err := rows.Err(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrTypeTimeout, "statement timed out")
		}

		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to iterate rows")
	}

	return &Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// normalizeValues converts driver byte slices to strings so results
// render and serialize consistently across engines
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}

	return normalized
}
