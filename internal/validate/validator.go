package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlsage/sqlsage/internal/schema"
)

// ReasonCode identifies why a statement was rejected
type ReasonCode string

const (
	ReasonMultiStatement    ReasonCode = "MULTI_STATEMENT"
	ReasonCommentNotAllowed ReasonCode = "COMMENT_NOT_ALLOWED"
	ReasonDangerousCommand  ReasonCode = "DANGEROUS_COMMAND"
	ReasonUnknownTable      ReasonCode = "UNKNOWN_TABLE"
	ReasonUnknownColumn     ReasonCode = "UNKNOWN_COLUMN"
)

// Result is the outcome of validating one statement
type Result struct {
	Valid   bool
	Reason  ReasonCode
	Message string
	Tables  []string
	Columns []string
}

// dangerous statement verbs, matched on word boundaries in any casing
var dangerousVerbs = regexp.MustCompile(
	`(?i)\b(DROP|INSERT|UPDATE|DELETE|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE)\b`)

var (
	cteNameRe    = regexp.MustCompile(`(?i)\b([a-zA-Z_]\w*)\s+AS\s*\(`)
	tableRefRe   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][\w.]*)`)
	aliasRefRe   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_]\w*)(?:\s+(?:AS\s+)?([a-zA-Z_]\w*))?`)
	selectItemRe = regexp.MustCompile(`(?i)^([a-zA-Z_]\w*)(?:\.([a-zA-Z_]\w*|\*))?(?:\s+(?:AS\s+)?[a-zA-Z_]\w*)?$`)
)

// reserved words that must not be mistaken for table aliases
var reservedWords = map[string]bool{
	"where": true, "join": true, "inner": true, "left": true, "right": true,
	"full": true, "cross": true, "on": true, "group": true, "order": true,
	"having": true, "limit": true, "offset": true, "union": true, "using": true,
	"as": true, "select": true, "from": true, "natural": true,
}

// Validator checks generated SQL against the safety policy and a schema
// snapshot. It is pure: no I/O, no state, deterministic for a given
// snapshot.
type Validator struct{}

// New creates a validator
func New() *Validator {
	return &Validator{}
}

// Validate applies the policy rules in order and stops at the first
// violation. A single trailing semicolon is tolerated.
func (v *Validator) Validate(sqlText string, snap *schema.Snapshot) Result {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return rejected(ReasonDangerousCommand, "empty SQL statement")
	}

	stripped := stripLiterals(trimmed)

	// Drop a trailing semicolon before looking for statement separators
	body := strings.TrimRight(stripped, "; \t\n\r")

	if strings.Contains(body, ";") {
		return rejected(ReasonMultiStatement, "multiple SQL statements are not allowed")
	}

	if strings.Contains(stripped, "--") || strings.Contains(stripped, "/*") {
		return rejected(ReasonCommentNotAllowed, "SQL comments are not allowed")
	}

	if m := dangerousVerbs.FindString(body); m != "" {
		return rejected(ReasonDangerousCommand,
			fmt.Sprintf("dangerous command %s is not allowed", strings.ToUpper(m)))
	}

	firstWord := strings.ToLower(firstToken(body))
	if firstWord != "select" && firstWord != "with" {
		return rejected(ReasonDangerousCommand, "only SELECT statements are allowed")
	}

	if viol := checkScope(body, snap, map[string]bool{}); viol != nil {
		return *viol
	}

	return Result{
		Valid:   true,
		Tables:  referencedTables(body),
		Columns: referencedColumns(body),
	}
}

func rejected(reason ReasonCode, message string) Result {
	return Result{Valid: false, Reason: reason, Message: message}
}

// checkScope validates the relations of one statement scope, then
// recurses into CTE bodies and subqueries. CTE names accumulate so later
// definitions and the outer body can reference earlier ones.
func checkScope(s string, snap *schema.Snapshot, visible map[string]bool) *Result {
	masked, groups := maskParens(s)

	ctes := make(map[string]bool, len(visible))
	for k := range visible {
		ctes[k] = true
	}

	for _, m := range cteNameRe.FindAllStringSubmatch(masked, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	// Tables referenced at this level
	for _, m := range tableRefRe.FindAllStringSubmatch(masked, -1) {
		name := m[1]
		base := name

		// schema-qualified names validate on the last segment
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			base = name[idx+1:]
		}

		if ctes[strings.ToLower(base)] {
			continue
		}

		if !snap.HasTable(base) {
			r := rejected(ReasonUnknownTable, fmt.Sprintf("unknown table: %s", base))
			return &r
		}
	}

	// Columns in this scope's SELECT list
	if viol := checkSelectList(masked, snap, ctes); viol != nil {
		return viol
	}

	// Recurse into subqueries and CTE bodies
	for _, g := range groups {
		inner := strings.TrimSpace(g)

		first := strings.ToLower(firstToken(inner))
		if first != "select" && first != "with" {
			continue
		}

		if viol := checkScope(inner, snap, ctes); viol != nil {
			return viol
		}
	}

	return nil
}

// checkSelectList verifies bare and table-qualified identifiers in the
// SELECT list against the scope's FROM tables. Wildcards, expressions,
// function calls, and anything that cannot be resolved pass through.
func checkSelectList(masked string, snap *schema.Snapshot, ctes map[string]bool) *Result {
	list, ok := selectList(masked)
	if !ok {
		return nil
	}

	aliases, tables := fromRelations(masked, snap, ctes)
	if len(tables) == 0 {
		// Selecting only from CTEs or derived tables: nothing to resolve
		// columns against
		return nil
	}

	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" || item == "*" {
			continue
		}

		m := selectItemRe.FindStringSubmatch(item)
		if m == nil {
			continue // expression, literal, or masked function call
		}

		base, col := m[1], m[2]

		switch {
		case col == "*":
			continue
		case col != "":
			// qualified: resolve alias or table name
			target, found := aliases[strings.ToLower(base)]
			if !found {
				target = strings.ToLower(base)
			}

			if ctes[target] || !snap.HasTable(target) {
				continue
			}

			if !snap.HasColumn(target, col) {
				r := rejected(ReasonUnknownColumn,
					fmt.Sprintf("unknown column: %s.%s", target, col))
				return &r
			}
		default:
			// bare identifier: must exist in one of the known FROM tables
			if isKeywordItem(base) {
				continue
			}

			found := false

			for _, t := range tables {
				if snap.HasColumn(t, base) {
					found = true
					break
				}
			}

			if !found {
				r := rejected(ReasonUnknownColumn, fmt.Sprintf("unknown column: %s", base))
				return &r
			}
		}
	}

	return nil
}

// fromRelations returns the alias map and the known schema tables of a
// scope. CTEs and unresolvable relations are excluded from the table
// list.
func fromRelations(
	masked string,
	snap *schema.Snapshot,
	ctes map[string]bool,
) (map[string]string, []string) {
	aliases := make(map[string]string)

	var tables []string

	for _, m := range aliasRefRe.FindAllStringSubmatch(masked, -1) {
		name := strings.ToLower(m[1])
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}

		if alias := strings.ToLower(m[2]); alias != "" && !reservedWords[alias] {
			aliases[alias] = name
		}

		if !ctes[name] && snap.HasTable(name) {
			tables = append(tables, name)
		}
	}

	return aliases, tables
}

// selectList extracts the text between the scope's SELECT and its
// top-level FROM
func selectList(masked string) (string, bool) {
	lower := strings.ToLower(masked)

	selIdx := indexWord(lower, "select")
	if selIdx < 0 {
		return "", false
	}

	rest := masked[selIdx+len("select"):]
	restLower := lower[selIdx+len("select"):]

	fromIdx := indexWord(restLower, "from")
	if fromIdx < 0 {
		return "", false
	}

	list := strings.TrimSpace(rest[:fromIdx])
	list = strings.TrimPrefix(list, "DISTINCT ")
	list = strings.TrimPrefix(list, "distinct ")

	return list, true
}

// indexWord finds a whole-word occurrence of w in s (s must be lowercase)
func indexWord(s, w string) int {
	for start := 0; ; {
		idx := strings.Index(s[start:], w)
		if idx < 0 {
			return -1
		}

		idx += start

		beforeOK := idx == 0 || !isWordChar(s[idx-1])
		afterOK := idx+len(w) >= len(s) || !isWordChar(s[idx+len(w)])

		if beforeOK && afterOK {
			return idx
		}

		start = idx + len(w)
	}
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isKeywordItem(w string) bool {
	switch strings.ToLower(w) {
	case "null", "true", "false", "current_date", "current_timestamp":
		return true
	}

	return false
}

// maskParens blanks out parenthesized content (keeping the parens and
// string length) and returns each top-level group for recursion
func maskParens(s string) (string, []string) {
	out := []byte(s)

	var groups []string

	depth := 0
	groupStart := -1

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if depth == 0 {
				groupStart = i + 1
			} else {
				out[i] = ' '
			}

			depth++
		case ')':
			depth--
			if depth == 0 && groupStart >= 0 {
				groups = append(groups, s[groupStart:i])
				groupStart = -1
			} else if depth > 0 {
				out[i] = ' '
			}
		default:
			if depth > 0 {
				out[i] = ' '
			}
		}
	}

	return string(out), groups
}

// stripLiterals blanks single-quoted string contents so quoted text
// never triggers separator, comment, or verb rules
func stripLiterals(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	inString := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c == '\'' {
			inString = !inString

			b.WriteByte(c)

			continue
		}

		if inString {
			b.WriteByte(' ')
		} else {
			b.WriteByte(c)
		}
	}

	return b.String()
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// referencedTables lists the distinct table names a statement touches
func referencedTables(body string) []string {
	seen := make(map[string]bool)

	var out []string

	for _, m := range tableRefRe.FindAllStringSubmatch(body, -1) {
		name := strings.ToLower(m[1])
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}

		if !seen[name] {
			seen[name] = true

			out = append(out, name)
		}
	}

	return out
}

// referencedColumns lists the bare and qualified identifiers of the
// outermost SELECT list
func referencedColumns(body string) []string {
	masked, _ := maskParens(body)

	list, ok := selectList(masked)
	if !ok {
		return nil
	}

	var out []string

	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)

		m := selectItemRe.FindStringSubmatch(item)
		if m == nil {
			continue
		}

		if m[2] != "" {
			out = append(out, strings.ToLower(m[1])+"."+strings.ToLower(m[2]))
		} else {
			out = append(out, strings.ToLower(m[1]))
		}
	}

	return out
}
