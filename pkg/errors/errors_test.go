package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	e := FromError(ErrConflict)
	require.Equal(t, "CONFLICT", e.Code)
	require.Equal(t, http.StatusConflict, e.Status)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "enrollment not found"))
	e = FromError(wrapped)
	require.Equal(t, "NOT_FOUND", e.Code)
	require.Equal(t, "enrollment not found", e.Message)

	e = FromError(errors.New("boom"))
	require.Equal(t, ErrInternal.Code, e.Code)
	require.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestCloneLeavesOriginalUntouched(t *testing.T) {
	clone := Clone(ErrConflict, "student already enrolled")
	require.Equal(t, "student already enrolled", clone.Message)
	require.Equal(t, "conflict", ErrConflict.Message)
	require.Equal(t, ErrConflict.Code, clone.Code)
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to list enrollments")
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "failed to list enrollments")
	require.Contains(t, err.Error(), "connection refused")
}
