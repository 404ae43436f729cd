package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()

	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = sink.Close() })

	return sink
}

func TestRecordAndRecent(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	err := sink.Record(ctx, Entry{
		Question:     "total revenue by country",
		SQL:          "SELECT country, SUM(revenue) FROM sales GROUP BY country",
		Success:      true,
		CacheHitType: "none",
		Model:        "gpt-4o-mini",
		RowCount:     3,
		ElapsedMS:    842,
	})
	require.NoError(t, err)

	entries, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "total revenue by country", entry.Question)
	assert.True(t, entry.Success)
	assert.Equal(t, "none", entry.CacheHitType)
	assert.Equal(t, 3, entry.RowCount)
	assert.Equal(t, int64(842), entry.ElapsedMS)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecentOrderNewestFirst(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := sink.Record(ctx, Entry{
			Question:  fmt.Sprintf("question %d", i),
			SQL:       "SELECT 1",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "question 2", entries[0].Question)
	assert.Equal(t, "question 0", entries[2].Question)
}

func TestRecentLimit(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Record(ctx, Entry{
			Question: fmt.Sprintf("question %d", i),
			SQL:      "SELECT 1",
		}))
	}

	entries, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordFailureEntry(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, Entry{
		Question:  "drop everything",
		SQL:       "",
		Success:   false,
		ErrorCode: "DANGEROUS_COMMAND",
	}))

	entries, err := sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.False(t, entries[0].Success)
	assert.Equal(t, "DANGEROUS_COMMAND", entries[0].ErrorCode)
}

func TestNoopSink(t *testing.T) {
	var sink Sink = NoopSink{}

	require.NoError(t, sink.Record(context.Background(), Entry{Question: "anything"}))

	entries, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
