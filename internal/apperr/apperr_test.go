package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedErrorsAs(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStorageFailure, "storage failure", cause)

	assert.Equal(t, KindStorageFailure, KindOf(err))
	assert.True(t, errors.Is(err, cause))
}

func TestKindOf_NonAppErrDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
}

func TestErrorMessage_WithAndWithoutCause(t *testing.T) {
	withoutCause := New(KindValidation, "phone is required")
	assert.Equal(t, "phone is required", withoutCause.Error())

	withCause := Wrap(KindInternal, "failed to save", errors.New("disk full"))
	assert.Equal(t, "failed to save: disk full", withCause.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindLimitExceeded, http.StatusTooManyRequests},
		{KindSessionDisconnected, http.StatusServiceUnavailable},
		{KindStorageFailure, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unmapped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.kind))
	}
}

func TestConvenienceConstructors_FormatMessage(t *testing.T) {
	err := NotFound("session %s not found", "abc-123")
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "session abc-123 not found", err.Message)
}
