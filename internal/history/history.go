// Package history records answered questions in a local SQLite file so
// past runs can be reviewed from the CLI.
package history

import (
	"context"
	"time"
)

// Entry is one recorded pipeline run
type Entry struct {
	ID           string
	Question     string
	SQL          string
	Success      bool
	ErrorCode    string
	CacheHitType string
	Model        string
	RowCount     int
	ElapsedMS    int64
	CreatedAt    time.Time
}

// Sink persists pipeline runs
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// NoopSink discards every entry. Used when history is disabled
type NoopSink struct{}

func (NoopSink) Record(context.Context, Entry) error { return nil }

func (NoopSink) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func (NoopSink) Close() error { return nil }

var _ Sink = NoopSink{}
