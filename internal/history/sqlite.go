package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sqlsage/sqlsage/internal/errors"
)

const maxRecentEntries = 100

// SQLiteSink stores history entries in a local SQLite database
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens or creates the history database at path
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create history directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to open history database")
	}

	// History is written by a single CLI process
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		sql_text TEXT NOT NULL,
		success INTEGER NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		cache_hit_type TEXT NOT NULL DEFAULT 'none',
		model TEXT NOT NULL DEFAULT '',
		row_count INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create history schema")
	}

	return &SQLiteSink{db: db}, nil
}

// Record persists one pipeline run. A missing ID or timestamp is filled
// in
func (s *SQLiteSink) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO query_history
		(id, question, sql_text, success, error_code, cache_hit_type, model, row_count, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Question, entry.SQL, success, entry.ErrorCode,
		entry.CacheHitType, entry.Model, entry.RowCount, entry.ElapsedMS,
		entry.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to record history entry")
	}

	return nil
}

// Recent returns the newest entries, most recent first. limit is capped
// at 100
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxRecentEntries {
		limit = maxRecentEntries
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, question, sql_text, success, error_code, cache_hit_type, model, row_count, elapsed_ms, created_at
		FROM query_history ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to read history")
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry

	for rows.Next() {
		var (
			entry     Entry
			success   int
			createdAt string
		)

		if err := rows.Scan(&entry.ID, &entry.Question, &entry.SQL, &success,
			&entry.ErrorCode, &entry.CacheHitType, &entry.Model,
			&entry.RowCount, &entry.ElapsedMS, &createdAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to scan history entry")
		}

		entry.Success = success == 1

		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = ts
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to iterate history")
	}

	return entries, nil
}

// Close releases the database handle
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

var _ Sink = (*SQLiteSink)(nil)
