package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrStorageWriteFailed, cause)

	assert.ErrorIs(t, err, ErrStorageWriteFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("upload: %w", err)
	assert.ErrorIs(t, wrapped, ErrStorageWriteFailed)
}

func TestWrap_NilCause(t *testing.T) {
	err := Wrap(ErrInvalidInput, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, ErrInvalidInput.Error(), err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{Wrap(ErrInvalidInput, nil), http.StatusBadRequest},
		{ErrUserAlreadyExists, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{Wrap(ErrNotFoundOrUnauthorized, ErrNotFound), http.StatusNotFound},
		{ErrShareLinkNotFound, http.StatusNotFound},
		{Wrap(ErrUpstreamFetchFailed, errors.New("timeout")), http.StatusBadGateway},
		{ErrStorageWriteFailed, http.StatusInternalServerError},
		{ErrPartialDeleteInconsistency, http.StatusInternalServerError},
		{errors.New("что-то странное"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestMessage_HidesCause(t *testing.T) {
	err := Wrap(ErrMetadataWriteFailed, errors.New("pq: duplicate key value"))
	assert.Equal(t, ErrMetadataWriteFailed.Error(), Message(err))
	assert.Equal(t, "внутренняя ошибка сервера", Message(errors.New("pq: syntax error")))
}

func TestNotFoundOrUnauthorized_SameForMissingAndForeign(t *testing.T) {
	missing := Wrap(ErrNotFoundOrUnauthorized, ErrNotFound)
	foreign := Wrap(ErrNotFoundOrUnauthorized, ErrNotFound)
	assert.Equal(t, Message(missing), Message(foreign))
	assert.Equal(t, HTTPStatus(missing), HTTPStatus(foreign))
}
