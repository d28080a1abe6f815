package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parley-ai/parley/internal/domain"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, map[string]int{"count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"count":3}}`, rec.Body.String())
}

func TestHandleErrorMapsValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, domain.ErrBlankContent)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "content cannot be blank")
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidTopK, http.StatusBadRequest},
		{domain.NewDomainError(domain.ErrCodeNotFound, "document not found"), http.StatusNotFound},
		{domain.NewStoreError("insert failed", errors.New("timeout")), http.StatusInternalServerError},
		{domain.NewInferenceError("completion failed", nil), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, DomainErrorToHTTP(tt.err))
	}
}

func TestDomainErrorToHTTPUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("adding knowledge: %w", domain.ErrBlankContent)
	assert.Equal(t, http.StatusBadRequest, DomainErrorToHTTP(wrapped))
}
