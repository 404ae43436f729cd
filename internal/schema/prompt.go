package schema

import (
	"fmt"
	"strings"
)

// typeAbbrev maps verbose SQL types to the short forms used in prompts
var typeAbbrev = map[string]string{
	"VARCHAR": "STR", "TEXT": "STR", "STRING": "STR", "CHAR": "STR",
	"DECIMAL": "DEC", "NUMERIC": "DEC", "DOUBLE": "DEC", "FLOAT": "DEC", "REAL": "DEC",
	"INTEGER": "INT", "INT": "INT", "BIGINT": "INT", "SMALLINT": "INT",
	"TIMESTAMP": "TS", "DATE": "TS", "DATETIME": "TS",
	"BOOLEAN": "BOOL", "BOOL": "BOOL",
}

func abbreviateType(t string) string {
	upper := strings.ToUpper(t)

	// Strip precision suffixes like DECIMAL(10,2)
	if idx := strings.Index(upper, "("); idx > 0 {
		upper = upper[:idx]
	}

	if short, ok := typeAbbrev[upper]; ok {
		return short
	}

	return upper
}

// CompactPrompt renders the snapshot as one line per table for prompt
// budgets: table(col TYPE PK, col TYPE FK->other.col, ...)
func CompactPrompt(s *Snapshot) string {
	var lines []string

	for _, name := range s.TableNames() {
		t, _ := s.Table(name)
		lines = append(lines, compactTable(t))
	}

	return strings.Join(lines, "\n")
}

// CompactPromptFor renders only the named tables, preserving their order
func CompactPromptFor(s *Snapshot, tables []string) string {
	var lines []string

	for _, name := range tables {
		if t, ok := s.Table(name); ok {
			lines = append(lines, compactTable(t))
		}
	}

	return strings.Join(lines, "\n")
}

func compactTable(t Table) string {
	pk := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pk[strings.ToLower(c)] = true
	}

	fks := make(map[string]ForeignKey, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		fks[strings.ToLower(fk.Column)] = fk
	}

	var cols []string

	for _, c := range t.Columns {
		part := fmt.Sprintf("%s %s", c.Name, abbreviateType(c.Type))

		if pk[strings.ToLower(c.Name)] {
			part += " PK"
		}

		if fk, ok := fks[strings.ToLower(c.Name)]; ok {
			part += fmt.Sprintf(" FK->%s.%s", fk.RefTable, fk.RefColumn)
		}

		cols = append(cols, part)
	}

	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(cols, ", "))
}

// CandidateTables selects tables whose names or column names overlap the
// question's words. Falls back to all tables when nothing matches, so a
// vague question still gets the full schema.
func CandidateTables(s *Snapshot, question string, maxTables int) []string {
	words := make(map[string]bool)

	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,?!'\"")
		if len(w) > 2 {
			words[w] = true
			// naive singularization so "sales totals" matches "total"
			words[strings.TrimSuffix(w, "s")] = true
		}
	}

	type scored struct {
		name  string
		score int
	}

	var candidates []scored

	for _, name := range s.TableNames() {
		t, _ := s.Table(name)
		score := 0

		lower := strings.ToLower(name)
		if words[lower] || words[strings.TrimSuffix(lower, "s")] {
			score += 3
		}

		for _, c := range t.Columns {
			if words[strings.ToLower(c.Name)] {
				score++
			}
		}

		if score > 0 {
			candidates = append(candidates, scored{name: name, score: score})
		}
	}

	if len(candidates) == 0 {
		names := s.TableNames()
		if maxTables > 0 && len(names) > maxTables {
			names = names[:maxTables]
		}

		return names
	}

	// Stable selection: sort by score descending, name ascending
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score ||
				(candidates[j].score == candidates[i].score && candidates[j].name < candidates[i].name) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	var out []string

	for _, c := range candidates {
		if maxTables > 0 && len(out) >= maxTables {
			break
		}

		out = append(out, c.name)
	}

	return out
}
