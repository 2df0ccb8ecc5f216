package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("userId is required"), http.StatusBadRequest},
		{"not found", NotFound("reflection not found"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", NotFound("x")), http.StatusNotFound},
		{"conflict", Conflict("email taken"), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"internal", Internal("failed to create user", errors.New("unique")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("reflection 3 not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("sql: connection refused")))
	assert.Equal(t, "internal server error", PublicMessage(Internal("db exploded", errors.New("x"))))
	assert.Equal(t, "mood is required", PublicMessage(Validation("mood is required")))
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("unique constraint")
	err := ErrConflict.WithCause(cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
}
