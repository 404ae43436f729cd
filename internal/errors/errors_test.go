package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypePolicy, "dangerous command rejected")

	assert.Equal(t, ErrTypePolicy, err.Type)
	assert.Equal(t, "dangerous command rejected", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeDatabase, "failed to connect to %s", "warehouse")

	assert.Equal(t, ErrTypeDatabase, err.Type)
	assert.Equal(t, "failed to connect to warehouse", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeBackend, "model request failed")

	assert.Equal(t, ErrTypeBackend, wrappedErr.Type)
	assert.Equal(t, "model request failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeBackend,
		"failed to reach %s:%d",
		"localhost",
		11434,
	)

	assert.Equal(t, ErrTypeBackend, wrappedErr.Type)
	assert.Equal(t, "failed to reach localhost:11434", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypePolicy,
				Message: "only SELECT statements are allowed",
			},
			expected: "policy_rejection: only SELECT statements are allowed",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeExecution,
				Message: "query failed",
				Cause:   errors.New("column does not exist"),
			},
			expected: "execution: query failed (caused by: column does not exist)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeBackend, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "missing API key")
	err = err.WithSuggestion("Set SQLSAGE_LLM_API_KEY in your environment")
	err = err.WithSuggestion("Or switch the provider to ollama")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Set SQLSAGE_LLM_API_KEY in your environment")
	assert.Contains(t, err.Suggestions, "Or switch the provider to ollama")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypePolicy, "rejected")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypePolicy))
	assert.False(t, IsType(structErr, ErrTypeDatabase))
	assert.False(t, IsType(regularErr, ErrTypePolicy))
}

func TestIsTypeWrapped(t *testing.T) {
	inner := New(ErrTypeTimeout, "statement timeout exceeded")
	outer := Wrap(inner, ErrTypeExecution, "query failed")

	// errors.As walks the chain, so the outermost type wins
	assert.True(t, IsType(outer, ErrTypeExecution))
	assert.True(t, IsType(outer.Cause, ErrTypeTimeout))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeTimeout, "deadline exceeded")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeTimeout, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "semantic_threshold")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "semantic_threshold")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
	assert.Contains(t, err.Suggestions, "Run with --help to see valid configuration options")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrTypePolicy, "policy_rejection"},
		{ErrTypeExecution, "execution"},
		{ErrTypeTimeout, "timeout"},
		{ErrTypeBackend, "backend"},
		{ErrTypeDatabase, "database"},
		{ErrTypeConfig, "config"},
		{ErrTypeInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}
