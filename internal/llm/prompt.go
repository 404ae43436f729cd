package llm

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt renders the generation instructions with the schema
// the model may use
func BuildSystemPrompt(schema string) string {
	var b strings.Builder

	b.WriteString("You are a SQL generator for a read-only analytics warehouse.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Output exactly one SELECT statement and nothing else.\n")
	b.WriteString("- Never use INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE, GRANT, REVOKE or EXEC.\n")
	b.WriteString("- Never use SQL comments.\n")
	b.WriteString("- Only reference the tables and columns listed below.\n")
	b.WriteString("- No explanations, no markdown fences, just the SQL.\n\n")
	b.WriteString("Schema (table(column TYPE markers, ...)):\n")
	b.WriteString(schema)
	b.WriteString("\n\nExamples:\n")

	for _, ex := range fewShotExamples {
		b.WriteString("Question: ")
		b.WriteString(ex.question)
		b.WriteString("\nSQL: ")
		b.WriteString(ex.sql)
		b.WriteString("\n")
	}

	return b.String()
}

// fewShotExamples anchor the expected output shape. They reference only
// aggregate patterns, so they transfer across schemas
var fewShotExamples = []struct {
	question string
	sql      string
}{
	{
		question: "How many rows are in the largest table?",
		sql:      "SELECT COUNT(*) FROM sales",
	},
	{
		question: "What are the top 5 values of a measure grouped by a dimension?",
		sql:      "SELECT country, SUM(revenue) AS total FROM sales GROUP BY country ORDER BY total DESC LIMIT 5",
	},
	{
		question: "Show recent records within a date range",
		sql:      "SELECT * FROM sales WHERE date >= '2026-01-01' ORDER BY date DESC",
	},
}

// BuildUserPrompt renders the question itself
func BuildUserPrompt(question string) string {
	return fmt.Sprintf("Question: %s\nSQL:", question)
}

// BuildRepairPrompt asks the model to fix a statement that failed to
// execute
func BuildRepairPrompt(question, schema string, repair *RepairContext) string {
	var b strings.Builder

	b.WriteString("The following SQL failed to execute. Produce a corrected SELECT statement.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nFailing SQL:\n")
	b.WriteString(repair.FailingSQL)
	b.WriteString("\n\nDatabase error:\n")
	b.WriteString(repair.ErrorMessage)
	b.WriteString("\n\nSchema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nReturn only the corrected SQL, no explanations.")

	return b.String()
}

// CleanSQLResponse strips markdown fences and surrounding prose from a
// model reply, leaving the bare statement
func CleanSQLResponse(raw string) string {
	s := strings.TrimSpace(raw)

	// Prefer a fenced block when present
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "sql")
		s = strings.TrimPrefix(s, "SQL")

		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	s = strings.TrimSpace(s)

	// Drop anything after a blank line following the statement
	if idx := strings.Index(s, "\n\n"); idx > 0 {
		first := s[:idx]
		if startsWithSelect(first) {
			s = first
		}
	}

	return strings.TrimSpace(s)
}

func startsWithSelect(s string) bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return false
	}

	return fields[0] == "select" || fields[0] == "with"
}
