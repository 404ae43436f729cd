package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlsage/sqlsage/internal/errors"
)

func TestClassifyExecutionError(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{
			name:     "postgres missing column",
			message:  `ERROR: column "region" does not exist`,
			expected: ErrClassColumnNotFound,
		},
		{
			name:     "duckdb missing column",
			message:  `Binder Error: could not find column "region"`,
			expected: ErrClassColumnNotFound,
		},
		{
			name:     "postgres missing relation",
			message:  `ERROR: relation "customers" does not exist`,
			expected: ErrClassTableNotFound,
		},
		{
			name:     "sqlite missing table",
			message:  "no such table: customers",
			expected: ErrClassTableNotFound,
		},
		{
			name:     "syntax error",
			message:  `syntax error at or near "FORM"`,
			expected: ErrClassSyntax,
		},
		{
			name:     "parser error",
			message:  "Parser Error: unexpected token",
			expected: ErrClassSyntax,
		},
		{
			name:     "type cast",
			message:  "Conversion Error: cannot cast VARCHAR to INTEGER",
			expected: ErrClassTypeMismatch,
		},
		{
			name:     "group by",
			message:  `column "country" must appear in the GROUP BY clause`,
			expected: ErrClassAggregate,
		},
		{
			name:     "ambiguous reference",
			message:  `column reference "id" is ambiguous`,
			expected: ErrClassJoin,
		},
		{
			name:     "unclassified",
			message:  "something went sideways",
			expected: ErrClassUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyExecutionError(fmt.Errorf("%s", tt.message)))
		})
	}
}

func TestClassifyExecutionErrorTypedTimeout(t *testing.T) {
	err := errors.New(errors.ErrTypeTimeout, "statement exceeded 30s")
	assert.Equal(t, ErrClassTimeout, classifyExecutionError(err))

	// The type wins even when the message would match another rule
	wrapped := errors.New(errors.ErrTypeTimeout, `column "region" does not exist`)
	assert.Equal(t, ErrClassTimeout, classifyExecutionError(wrapped))
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		recoverable bool
	}{
		{
			name:        "missing column",
			err:         fmt.Errorf(`column "region" does not exist`),
			recoverable: true,
		},
		{
			name:        "syntax error",
			err:         fmt.Errorf("syntax error at end of input"),
			recoverable: true,
		},
		{
			name:        "typed timeout",
			err:         errors.New(errors.ErrTypeTimeout, "statement timed out"),
			recoverable: false,
		},
		{
			name:        "typed database failure",
			err:         errors.New(errors.ErrTypeDatabase, "failed to ping database"),
			recoverable: false,
		},
		{
			name:        "permission denied",
			err:         fmt.Errorf("ERROR: permission denied for table sales"),
			recoverable: false,
		},
		{
			name:        "connection refused",
			err:         fmt.Errorf("dial tcp 127.0.0.1:5432: connection refused"),
			recoverable: false,
		},
		{
			name:        "authentication failure",
			err:         fmt.Errorf("password authentication failed for user"),
			recoverable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.recoverable, isRecoverable(tt.err))
		})
	}
}
