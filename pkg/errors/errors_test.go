package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("schema"), ErrorTypeNotFound, http.StatusNotFound},
		{"inference", NewInferenceError("malformed"), ErrorTypeInference, http.StatusUnprocessableEntity},
		{"parameter parsing", NewParameterParsingError("wrong type"), ErrorTypeParameterParsing, http.StatusBadRequest},
		{"invalid state", NewInvalidStateError("already on first version"), ErrorTypeInvalidState, http.StatusConflict},
		{"payload too large", NewPayloadTooLargeError(1024), ErrorTypePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"storage", NewStorageError("save", errors.New("disk full")), ErrorTypeStorage, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, HTTPStatus(tt.err))
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	base := NewInvalidStateError("already on latest version")
	wrapped := fmt.Errorf("redo: %w", base)

	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsParameterParsing(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("app error keeps type and original message", func(t *testing.T) {
		orig := NewParameterParsingError("did contain more than 1 elements")
		err := Wrapf(orig, "operation %s", "SetDataType")

		require.True(t, IsParameterParsing(err))
		assert.Contains(t, err.Error(), "operation SetDataType: did contain more than 1 elements")
		assert.Equal(t, "did contain more than 1 elements", orig.Message)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(cause, "archive")
		assert.True(t, IsType(err, ErrorTypeInternal))
		assert.ErrorIs(t, err, cause)
	})
}

func TestWithDetail(t *testing.T) {
	err := NewValidationError("bad").WithDetail("field", "name").WithCode("E1")
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, "E1", err.Code)
}
