package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestClonesMatchSentinels(t *testing.T) {
	t.Parallel()

	err := ErrNotFound.WithError(fmt.Errorf("boom")).WithDetails(map[string]interface{}{"key": "x"})
	wrapped := fmt.Errorf("service: %w", err)

	require.ErrorIs(t, wrapped, ErrNotFound)
	require.NotErrorIs(t, wrapped, ErrValidation)
	require.Empty(t, ErrNotFound.Details, "sentinel details must not be mutated")

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, "x", appErr.Details["key"])
	require.Equal(t, "boom", appErr.Cause())
}

func TestFromError(t *testing.T) {
	t.Parallel()

	require.Nil(t, FromError(nil))
	require.Equal(t, http.StatusRequestTimeout, FromError(context.Canceled).StatusCode)

	internal := FromError(stderrors.New("disk on fire"))
	require.ErrorIs(t, internal, ErrInternal)
	require.Equal(t, "disk on fire", internal.Cause())

	nf := NewNotFoundError("component", "rent")
	require.Same(t, nf, FromError(nf))
}

func TestParseValidationErrors(t *testing.T) {
	t.Parallel()

	type input struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(input{})
	appErr := ParseValidationErrors(err)
	require.ErrorIs(t, appErr, ErrValidation)
	require.Equal(t, "Name is required", appErr.Message)
	require.Len(t, appErr.Details["fields"], 1)

	require.ErrorIs(t, ParseValidationErrors(stderrors.New("plain")), ErrBadRequest)
}
