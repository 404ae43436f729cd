package schema

import (
	"sort"
	"strings"
	"time"
)

// Column describes a single column of a warehouse table
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ForeignKey describes a reference from a column to another table's column
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// Table describes a warehouse table
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Snapshot is an immutable view of the warehouse schema. Lookups are
// case-insensitive; the snapshot is never mutated after construction.
type Snapshot struct {
	tables   map[string]Table
	names    []string
	LoadedAt time.Time
}

// NewSnapshot builds a snapshot from a list of tables
func NewSnapshot(tables []Table) *Snapshot {
	s := &Snapshot{
		tables:   make(map[string]Table, len(tables)),
		LoadedAt: time.Now(),
	}

	for _, t := range tables {
		key := strings.ToLower(t.Name)
		s.tables[key] = t
		s.names = append(s.names, t.Name)
	}

	sort.Strings(s.names)

	return s
}

// HasTable reports whether the named table exists
func (s *Snapshot) HasTable(name string) bool {
	_, ok := s.tables[strings.ToLower(name)]
	return ok
}

// Table returns the named table definition
func (s *Snapshot) Table(name string) (Table, bool) {
	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

// HasColumn reports whether the named table has the named column
func (s *Snapshot) HasColumn(table, column string) bool {
	t, ok := s.tables[strings.ToLower(table)]
	if !ok {
		return false
	}

	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, column) {
			return true
		}
	}

	return false
}

// TableNames returns all table names in sorted order
func (s *Snapshot) TableNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)

	return out
}

// Len returns the number of tables in the snapshot
func (s *Snapshot) Len() int {
	return len(s.tables)
}

// ColumnsOf returns the column names of a table, nil if the table is unknown
func (s *Snapshot) ColumnsOf(table string) []string {
	t, ok := s.tables[strings.ToLower(table)]
	if !ok {
		return nil
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}

	return cols
}
