package pipeline

import (
	"strings"

	"github.com/sqlsage/sqlsage/internal/errors"
)

// Execution error classes surfaced in failure results
const (
	ErrClassColumnNotFound = "COLUMN_NOT_FOUND"
	ErrClassTableNotFound  = "TABLE_NOT_FOUND"
	ErrClassSyntax         = "SYNTAX_ERROR"
	ErrClassTypeMismatch   = "TYPE_MISMATCH"
	ErrClassAggregate      = "AGGREGATE_ERROR"
	ErrClassJoin           = "JOIN_ERROR"
	ErrClassTimeout        = "TIMEOUT"
	ErrClassUnknown        = "UNKNOWN_ERROR"
)

type errorClassRule struct {
	class    string
	patterns []string
}

// matched in order against the lowercased engine message
var errorClassRules = []errorClassRule{
	{ErrClassColumnNotFound, []string{"column", "does not exist"}},
	{ErrClassColumnNotFound, []string{"no column named"}},
	{ErrClassColumnNotFound, []string{"could not find column"}},
	{ErrClassTableNotFound, []string{"table", "does not exist"}},
	{ErrClassTableNotFound, []string{"no such table"}},
	{ErrClassTableNotFound, []string{"relation", "does not exist"}},
	{ErrClassSyntax, []string{"syntax error"}},
	{ErrClassSyntax, []string{"parser error"}},
	{ErrClassTypeMismatch, []string{"type mismatch"}},
	{ErrClassTypeMismatch, []string{"cannot cast"}},
	{ErrClassTypeMismatch, []string{"invalid input syntax for type"}},
	{ErrClassAggregate, []string{"must appear in the group by"}},
	{ErrClassAggregate, []string{"aggregate"}},
	{ErrClassJoin, []string{"ambiguous"}},
	{ErrClassJoin, []string{"join"}},
}

// engine failures that repair cannot fix
var nonRecoverablePatterns = []string{
	"permission denied",
	"access denied",
	"authentication",
	"password",
	"connection refused",
	"connection reset",
	"no such host",
	"too many connections",
	"out of memory",
	"disk",
}

// classifyExecutionError maps an engine error to an error class. Typed
// timeouts classify before any message pattern
func classifyExecutionError(err error) string {
	if errors.IsType(err, errors.ErrTypeTimeout) {
		return ErrClassTimeout
	}

	message := strings.ToLower(err.Error())

	for _, rule := range errorClassRules {
		if matchesPatterns(message, rule.patterns) {
			return rule.class
		}
	}

	return ErrClassUnknown
}

// isRecoverable reports whether a single repair attempt is worthwhile.
// Timeouts and infrastructure failures never are
func isRecoverable(err error) bool {
	if errors.IsType(err, errors.ErrTypeTimeout) {
		return false
	}

	if errors.IsType(err, errors.ErrTypeDatabase) {
		return false
	}

	message := strings.ToLower(err.Error())

	for _, pattern := range nonRecoverablePatterns {
		if strings.Contains(message, pattern) {
			return false
		}
	}

	return true
}

func matchesPatterns(message string, patterns []string) bool {
	for _, pattern := range patterns {
		if !strings.Contains(message, pattern) {
			return false
		}
	}

	return true
}
