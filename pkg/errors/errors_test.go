package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := map[*AppError]int{
		NotFound("visit", nil):           http.StatusNotFound,
		BadRequest("bad", nil):           http.StatusBadRequest,
		Unauthorized(nil):                http.StatusUnauthorized,
		Forbidden("no"):                  http.StatusForbidden,
		Conflict("state"):                http.StatusConflict,
		InsufficientStock(nil):           http.StatusUnprocessableEntity,
		Unavailable(stderrors.New("db")): http.StatusServiceUnavailable,
		Internal(stderrors.New("boom")):  http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.StatusCode(), err.Message)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := Conflict("visit already paid")
	wrapped := fmt.Errorf("confirm payment: %w", base)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, appErr)
	assert.True(t, HasCode(wrapped, ErrConflict))
	assert.False(t, HasCode(wrapped, ErrNotFound))
	assert.False(t, HasCode(stderrors.New("plain"), ErrConflict))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NotFound("medicine", stderrors.New("no rows"))
	assert.Equal(t, "medicine not found: no rows", err.Error())
	assert.Equal(t, "visit not found", NotFound("visit", nil).Error())
}
