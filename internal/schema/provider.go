package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Provider loads a schema snapshot from some source of truth
type Provider interface {
	Load(ctx context.Context) (*Snapshot, error)
	Name() string
}

// StaticProvider serves a fixed, in-memory schema. Used for the demo
// warehouse and as a fallback when discovery is unavailable.
type StaticProvider struct {
	tables []Table
}

// NewStaticProvider creates a provider serving the given tables
func NewStaticProvider(tables []Table) *StaticProvider {
	return &StaticProvider{tables: tables}
}

// DefaultWarehouse returns the built-in demo schema
func DefaultWarehouse() []Table {
	return []Table{
		{
			Name: "sales",
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "date", Type: "TIMESTAMP"},
				{Name: "country", Type: "VARCHAR"},
				{Name: "product_id", Type: "INTEGER"},
				{Name: "revenue", Type: "DECIMAL"},
				{Name: "quantity", Type: "INTEGER"},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "product_id", RefTable: "products", RefColumn: "id"},
			},
			Description: "Sales transactions",
		},
		{
			Name: "products",
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "VARCHAR"},
				{Name: "category", Type: "VARCHAR"},
				{Name: "price", Type: "DECIMAL"},
			},
			PrimaryKey:  []string{"id"},
			Description: "Product catalog",
		},
	}
}

func (p *StaticProvider) Load(_ context.Context) (*Snapshot, error) {
	return NewSnapshot(p.tables), nil
}

func (p *StaticProvider) Name() string {
	return "static"
}

// DBProvider discovers the schema from information_schema over a live
// connection. Works against both DuckDB and Postgres.
type DBProvider struct {
	db         *sql.DB
	schemaName string
}

// NewDBProvider creates a discovery provider for the given connection
func NewDBProvider(db *sql.DB, schemaName string) *DBProvider {
	if schemaName == "" {
		schemaName = "main"
	}

	return &DBProvider{db: db, schemaName: schemaName}
}

func (p *DBProvider) Name() string {
	return "information_schema"
}

func (p *DBProvider) Load(ctx context.Context) (*Snapshot, error) {
	columns, err := p.loadColumns(ctx)
	if err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("no tables found in schema %q", p.schemaName)
	}

	pks, err := p.loadPrimaryKeys(ctx)
	if err != nil {
		return nil, err
	}

	fks, err := p.loadForeignKeys(ctx)
	if err != nil {
		return nil, err
	}

	var tables []Table

	for name, cols := range columns {
		tables = append(tables, Table{
			Name:        name,
			Columns:     cols,
			PrimaryKey:  pks[name],
			ForeignKeys: fks[name],
		})
	}

	return NewSnapshot(tables), nil
}

// Discovery queries use $1 placeholders, which both pgx and DuckDB accept

func (p *DBProvider) loadColumns(ctx context.Context) (map[string][]Column, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, p.schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to query information_schema.columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]Column)

	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}

		columns[table] = append(columns[table], Column{
			Name:     column,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}

	return columns, rows.Err()
}

func (p *DBProvider) loadPrimaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, p.schemaName)
	if err != nil {
		// Primary key discovery is best effort; not every engine exposes
		// key_column_usage the same way.
		return map[string][]string{}, nil
	}
	defer rows.Close()

	pks := make(map[string][]string)

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("failed to scan primary key row: %w", err)
		}

		pks[table] = append(pks[table], column)
	}

	return pks, rows.Err()
}

func (p *DBProvider) loadForeignKeys(ctx context.Context) (map[string][]ForeignKey, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, p.schemaName)
	if err != nil {
		// Best effort: constraint_column_usage is missing on some engines
		return map[string][]ForeignKey{}, nil
	}
	defer rows.Close()

	fks := make(map[string][]ForeignKey)

	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}

		fks[table] = append(fks[table], ForeignKey{
			Column:    column,
			RefTable:  refTable,
			RefColumn: refColumn,
		})
	}

	return fks, rows.Err()
}
