package http

import (
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
)

func TestErrorHandler_Handle(t *testing.T) {
	verrs := apperrors.NewValidationErrors()
	verrs.Add("capacity", "Must not be negative")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"wrapped skill lookup", fmt.Errorf("skill 9: %w", apperrors.ErrSkillNotFound), stdhttp.StatusNotFound, "SKILL_NOT_FOUND"},
		{"generic not found", apperrors.ErrNotFound, stdhttp.StatusNotFound, "NOT_FOUND"},
		{"no eligible", fmt.Errorf("assign: %w", apperrors.ErrNoEligibleTechnician), stdhttp.StatusConflict, "NO_ELIGIBLE_TECHNICIAN"},
		{"ticket held elsewhere", fmt.Errorf("reserve: %w", apperrors.ErrTicketHeld), stdhttp.StatusConflict, "ROUTING_CONFLICT"},
		{"lost routing write", fmt.Errorf("update ticket: %w", apperrors.ErrRoutingConflict), stdhttp.StatusConflict, "ROUTING_CONFLICT"},
		{"dispatcher stopped", apperrors.ErrDispatcherStopped, stdhttp.StatusServiceUnavailable, "ROUTING_UNAVAILABLE"},
		{"bad availability", apperrors.ErrInvalidAvailability, stdhttp.StatusBadRequest, "VALIDATION_ERROR"},
		{"transition", apperrors.ErrInvalidStatusTransition, stdhttp.StatusConflict, "INVALID_STATUS_TRANSITION"},
		{"field errors", verrs, stdhttp.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"app error", apperrors.NewBadRequestError(errors.New("eof"), "Invalid request body"), stdhttp.StatusBadRequest, "BAD_REQUEST"},
		{"unknown", errors.New("connection reset"), stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	handler := NewErrorHandler(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Handle(rec, httptest.NewRequest(stdhttp.MethodGet, "/x", nil), tt.err)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestErrorHandler_InternalDetailsNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(testLogger()).Handle(rec, httptest.NewRequest(stdhttp.MethodGet, "/x", nil), errors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password")
}
