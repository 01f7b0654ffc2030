package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("add to cart: %w", NewCartLimitError("too many"))
	assert.True(t, IsBusinessRule(wrapped))
	assert.False(t, IsValidation(wrapped))

	verrs := NewValidationErrors()
	verrs.Add("id", "required")
	assert.True(t, IsValidation(fmt.Errorf("decode: %w", verrs)))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("")))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeInternal))
}

func TestDrainIncompleteError(t *testing.T) {
	cause := errors.New("502")
	err := NewDrainIncompleteError(1, 3, cause)

	assert.ErrorIs(t, err, ErrDrainIncomplete)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
	assert.Equal(t, 1, err.Details["synced"])
	assert.Contains(t, err.Error(), "delivered 1 of 3")
}

func serve(t *testing.T, h *ErrorHandler, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	h.Handle(rec, req, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestErrorHandler_Handle(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	verrs := NewValidationErrors()
	verrs.Add("item.id", "is required")

	tests := []struct {
		name     string
		err      error
		status   int
		errType  ErrorType
		code     string
		message  string
		hasField string
	}{
		{"field errors", verrs, http.StatusBadRequest, ErrorTypeValidation, "", "", "item.id"},
		{"validation", NewValidationError("bad delta"), http.StatusBadRequest, ErrorTypeValidation, "", "bad delta", ""},
		{"limit", NewCartLimitError("full"), http.StatusUnprocessableEntity, ErrorTypeBusinessRule, "LIMIT_EXCEEDED", "full", ""},
		{"unauthorized", NewUnauthorizedError("missing token"), http.StatusUnauthorized, ErrorTypeUnauthorized, "", "missing token", ""},
		{"unavailable", NewUnavailableError("remote cart API"), http.StatusServiceUnavailable, ErrorTypeUnavailable, "", "", ""},
		{"unknown", errors.New("secret detail"), http.StatusInternalServerError, ErrorTypeInternal, "", "An internal error occurred", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, h, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.True(t, body.Error)
			assert.Equal(t, string(tt.errType), body.Type)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, "req-1", body.RequestID)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
			if tt.hasField != "" {
				assert.Contains(t, body.Details, tt.hasField)
			}
			assert.NotContains(t, body.Details, "stack_trace")
		})
	}
}

func TestErrorHandler_DebugExposesDetail(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)

	_, body := serve(t, h, errors.New("secret detail"))
	assert.Equal(t, "secret detail", body.Message)

	_, body = serve(t, h, NewInternalError("boom"))
	assert.Contains(t, body.Details, "stack_trace")
}

func TestErrorHandler_MiddlewareRecoversPanics(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
