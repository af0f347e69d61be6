package rankrunner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	cause := errors.New("manifest unreadable")
	err := NewRuntimeError(cause)

	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("starting up: %w", err)
	assert.True(t, IsRuntimeError(wrapped))
}

func TestTestFailureError(t *testing.T) {
	err := NewTestFailureError("suites with failures: integration")

	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Contains(t, err.Error(), "integration")

	wrapped := fmt.Errorf("run: %w", err)
	assert.True(t, IsTestFailureError(wrapped))
}

func TestPlainErrorsAreNeither(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}
