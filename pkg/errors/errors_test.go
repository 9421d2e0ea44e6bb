package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", ErrInvalidInput, http.StatusUnprocessableEntity},
		{"no documents", ErrNoDocuments, http.StatusServiceUnavailable},
		{"wrapped no documents", fmt.Errorf("generating: %w", ErrNoDocuments), http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("encoding: %w", ErrInternal), http.StatusInternalServerError},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error status wins", New(ErrInvalidInput, http.StatusBadRequest, "bad"), http.StatusBadRequest},
		{"app error without status", &AppError{Err: ErrNoDocuments, Message: "x"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrNoDocuments, http.StatusServiceUnavailable, "store has %d documents", 0)

	assert.True(t, errors.Is(err, ErrNoDocuments))
	assert.Equal(t, "no documents available: store has 0 documents", err.Error())
	assert.Equal(t, "store has 0 documents", Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("plain"), "fallback"))
}
