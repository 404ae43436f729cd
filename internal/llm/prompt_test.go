package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSQLResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare statement",
			input:    "SELECT * FROM sales",
			expected: "SELECT * FROM sales",
		},
		{
			name:     "surrounding whitespace",
			input:    "\n  SELECT country FROM sales  \n",
			expected: "SELECT country FROM sales",
		},
		{
			name:     "sql fence",
			input:    "```sql\nSELECT * FROM sales\n```",
			expected: "SELECT * FROM sales",
		},
		{
			name:     "plain fence",
			input:    "```\nSELECT * FROM sales\n```",
			expected: "SELECT * FROM sales",
		},
		{
			name:     "fence with prose before",
			input:    "Here is the query:\n```sql\nSELECT id FROM products\n```",
			expected: "SELECT id FROM products",
		},
		{
			name:     "trailing explanation after blank line",
			input:    "SELECT id FROM products\n\nThis query lists product ids.",
			expected: "SELECT id FROM products",
		},
		{
			name:     "multiline statement preserved",
			input:    "SELECT id,\n  name\nFROM products",
			expected: "SELECT id,\n  name\nFROM products",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanSQLResponse(tt.input))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("sales(id INT PK, revenue DEC)")

	assert.Contains(t, prompt, "read-only")
	assert.Contains(t, prompt, "sales(id INT PK, revenue DEC)")
	assert.Contains(t, prompt, "one SELECT statement")

	// Few-shot examples anchor the output shape
	assert.Contains(t, prompt, "Examples:")
	assert.Contains(t, prompt, "GROUP BY country ORDER BY total DESC LIMIT 5")
}

func TestBuildRepairPrompt(t *testing.T) {
	prompt := BuildRepairPrompt(
		"total revenue by region",
		"sales(id INT PK, revenue DEC)",
		&RepairContext{
			FailingSQL:   "SELECT region FROM sales",
			ErrorMessage: `column "region" does not exist`,
		},
	)

	assert.Contains(t, prompt, "total revenue by region")
	assert.Contains(t, prompt, "SELECT region FROM sales")
	assert.Contains(t, prompt, `column "region" does not exist`)
	assert.Contains(t, prompt, "sales(id INT PK, revenue DEC)")
}
