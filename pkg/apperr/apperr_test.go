package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("taken"), http.StatusConflict},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{Assessment("ai", errors.New("x")), http.StatusInternalServerError},
		{Persistence("db", errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusCode(tc.err), tc.err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("call %s", "abc"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))

	v := Validation("bad")
	assert.Same(t, v, Wrap(v, "ignored"))

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, "insert call")
	assert.Equal(t, KindPersistence, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestPublicMessage_HidesCause(t *testing.T) {
	assert.Equal(t, "assessment service failure", PublicMessage(Assessment("gemini", errors.New("secret key rejected"))))
	assert.Equal(t, "internal server error", PublicMessage(Persistence("db", errors.New("password auth failed"))))
	assert.Equal(t, "description is required", PublicMessage(Validation("description is required")))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
}
