package schema

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLookups(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())

	tests := []struct {
		name   string
		table  string
		column string
		want   bool
	}{
		{"known table", "sales", "", true},
		{"known table upper", "SALES", "", true},
		{"unknown table", "customers", "", false},
		{"known column", "sales", "revenue", true},
		{"known column mixed case", "Sales", "Revenue", true},
		{"unknown column", "sales", "margin", false},
		{"column on unknown table", "customers", "name", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.column == "" {
				assert.Equal(t, tt.want, snap.HasTable(tt.table))
			} else {
				assert.Equal(t, tt.want, snap.HasColumn(tt.table, tt.column))
			}
		})
	}
}

func TestSnapshotTableNames(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())

	assert.Equal(t, []string{"products", "sales"}, snap.TableNames())
	assert.Equal(t, 2, snap.Len())
}

func TestSnapshotColumnsOf(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())

	cols := snap.ColumnsOf("products")
	assert.Equal(t, []string{"id", "name", "category", "price"}, cols)

	assert.Nil(t, snap.ColumnsOf("customers"))
}

func TestCompactPrompt(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())
	prompt := CompactPrompt(snap)

	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "products(id INT PK, name STR, category STR, price DEC)", lines[0])
	assert.Equal(t,
		"sales(id INT PK, date TS, country STR, product_id INT FK->products.id, revenue DEC, quantity INT)",
		lines[1])
}

func TestCompactPromptFor(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())
	prompt := CompactPromptFor(snap, []string{"products"})

	assert.Equal(t, "products(id INT PK, name STR, category STR, price DEC)", prompt)
}

func TestAbbreviateType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"VARCHAR", "STR"},
		{"varchar", "STR"},
		{"DECIMAL(10,2)", "DEC"},
		{"BIGINT", "INT"},
		{"TIMESTAMP", "TS"},
		{"BOOLEAN", "BOOL"},
		{"UUID", "UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, abbreviateType(tt.in))
		})
	}
}

func TestCandidateTables(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())

	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{"table name match", "total sales by country", []string{"sales"}},
		{"column match", "average price per category", []string{"products"}},
		{"both tables", "revenue by product category", []string{"products", "sales"}},
		{"no match falls back to all", "what happened yesterday", []string{"products", "sales"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CandidateTables(snap, tt.question, 0)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCandidateTablesMax(t *testing.T) {
	snap := NewSnapshot(DefaultWarehouse())

	got := CandidateTables(snap, "nothing relevant here", 1)
	assert.Len(t, got, 1)
}

// countingProvider tracks how many loads the registry performs
type countingProvider struct {
	loads  int
	fail   bool
	tables []Table
}

func (p *countingProvider) Load(_ context.Context) (*Snapshot, error) {
	p.loads++
	if p.fail {
		return nil, errors.New("warehouse unavailable")
	}

	return NewSnapshot(p.tables), nil
}

func (p *countingProvider) Name() string { return "counting" }

func TestRegistryCachesWithinTTL(t *testing.T) {
	provider := &countingProvider{tables: DefaultWarehouse()}
	reg := NewRegistry(provider, time.Minute)

	ctx := context.Background()

	first, err := reg.Snapshot(ctx)
	require.NoError(t, err)

	second, err := reg.Snapshot(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, provider.loads)
}

func TestRegistryRefreshForcesReload(t *testing.T) {
	provider := &countingProvider{tables: DefaultWarehouse()}
	reg := NewRegistry(provider, time.Minute)

	ctx := context.Background()

	_, err := reg.Snapshot(ctx)
	require.NoError(t, err)

	_, err = reg.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.loads)
}

func TestRegistryServesStaleOnFailure(t *testing.T) {
	provider := &countingProvider{tables: DefaultWarehouse()}
	reg := NewRegistry(provider, time.Minute)

	ctx := context.Background()

	first, err := reg.Snapshot(ctx)
	require.NoError(t, err)

	provider.fail = true

	stale, err := reg.Refresh(ctx)
	require.NoError(t, err)
	assert.Same(t, first, stale)
}

func TestRegistryFailsWithoutSnapshot(t *testing.T) {
	provider := &countingProvider{fail: true}
	reg := NewRegistry(provider, time.Minute)

	_, err := reg.Snapshot(context.Background())
	assert.Error(t, err)
}
