package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewError(ErrTool, "search adapter failed").WithCause(cause)

	require.ErrorContains(t, err, "TOOL_ERROR")
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, cause, err.Unwrap())
}

func TestErrorCodeExtraction(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotFoundError("concept", "c-42"))

	require.True(t, IsErrorCode(err, ErrNotFound))
	require.Equal(t, ErrNotFound, GetErrorCode(err))
	require.False(t, IsErrorCode(err, ErrValidation))
	require.Equal(t, ErrorCode(""), GetErrorCode(fmt.Errorf("plain")))
}

func TestCapacityViolationIsFatal(t *testing.T) {
	require.True(t, IsFatal(NewError(ErrCapacityViolation, "working memory over capacity")))
	require.False(t, IsFatal(NewValidationError("bad input")))
}
