package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("nope")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))

	// The code survives wrapping with fmt.Errorf.
	wrapped := fmt.Errorf("loading user: %w", Unauthorized("no token"))
	assert.Equal(t, CodeUnauthenticated, CodeOf(wrapped))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "db query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db query failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidArg("bad")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(AlreadyExists("dup")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("nope")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("who")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("no")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
