package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("User", "user %d not found", 7), http.StatusNotFound},
		{"already exists", AlreadyExists("Pharmacy", "name taken"), http.StatusConflict},
		{"not authorized", NotAuthorized("TradeRecord", "only owners"), http.StatusForbidden},
		{"invalid argument", InvalidArgument("Page", "negative page"), http.StatusBadRequest},
		{"unauthenticated", ErrUnauthorized, http.StatusUnauthorized},
		{"rate limit", fmt.Errorf("login: %w", ErrRateLimitExceeded), http.StatusTooManyRequests},
		{"server", Server("User", "mapping failed"), http.StatusInternalServerError},
		{"raw", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("typed errors pass through", func(t *testing.T) {
		original := NotFound("Pharmacy", "pharmacy 3 not found")
		assert.Same(t, original, Wrap("Pharmacy", original))
	})

	t.Run("raw errors become server errors", func(t *testing.T) {
		cause := errors.New("pq: connection reset")
		wrapped := Wrap("User", cause)

		assert.ErrorIs(t, wrapped, ErrServer)
		assert.ErrorIs(t, wrapped, cause)
		assert.Equal(t, ErrServer.Error(), PublicMessage(wrapped))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap("User", nil))
	})
}

func TestAppErrorMessage(t *testing.T) {
	err := AlreadyExists("User", "username %s already exists", "alice")

	assert.Equal(t, "User: username alice already exists", err.Error())
	assert.Equal(t, "User: username alice already exists", PublicMessage(err))
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestInvalidCause(t *testing.T) {
	cause := errors.New(`unknown field path: "colour"`)
	err := InvalidCause("Pharmacy", cause)

	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatus(err))
	assert.Equal(t, `Pharmacy: invalid argument: unknown field path: "colour"`, PublicMessage(err))
}
