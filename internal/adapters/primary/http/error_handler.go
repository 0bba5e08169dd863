package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/infrastructure/logging"
)

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	// Check for AppError first (our custom error type)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, err)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err)
		h.writeValidationErrorResponse(w, validationErrs)
		return
	}

	statusCode, response := h.mapDomainError(err)
	h.logError(r, statusCode, err)
	h.writeErrorResponse(w, statusCode, response)
}

// mapDomainError converts domain errors to HTTP status codes and responses
func (h *ErrorHandler) mapDomainError(err error) (int, ErrorResponse) {
	switch {
	// Authentication & Authorization
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHORIZED",
		}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error: "You do not have permission to perform this action",
			Code:  "FORBIDDEN",
		}

	// Not Found errors
	case errors.Is(err, apperrors.ErrSkillNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "SKILL_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrTechnicianNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Technician not found",
			Code:  "TECHNICIAN_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ticket not found",
			Code:  "TICKET_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Resource not found",
			Code:  "NOT_FOUND",
		}

	// Routing outcomes
	case errors.Is(err, apperrors.ErrNoEligibleTechnician):
		return http.StatusConflict, ErrorResponse{
			Error: "No eligible technician is available for this ticket",
			Code:  "NO_ELIGIBLE_TECHNICIAN",
		}
	case errors.Is(err, apperrors.ErrOverCapacity):
		return http.StatusConflict, ErrorResponse{
			Error: "Technician is at capacity",
			Code:  "OVER_CAPACITY",
		}
	case errors.Is(err, apperrors.ErrTicketTerminal):
		return http.StatusConflict, ErrorResponse{
			Error: "Ticket is resolved, closed or cancelled",
			Code:  "TICKET_TERMINAL",
		}
	case errors.Is(err, apperrors.ErrQueueFull),
		errors.Is(err, apperrors.ErrDispatcherStopped):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "Routing is temporarily unavailable. Please try again later.",
			Code:  "ROUTING_UNAVAILABLE",
		}

	case errors.Is(err, apperrors.ErrTicketHeld),
		errors.Is(err, apperrors.ErrRoutingConflict):
		return http.StatusConflict, ErrorResponse{
			Error: "Ticket is already being routed",
			Code:  "ROUTING_CONFLICT",
		}

	// Conflict errors
	case errors.Is(err, apperrors.ErrSkillExists):
		return http.StatusConflict, ErrorResponse{
			Error: "A skill with this name already exists",
			Code:  "SKILL_EXISTS",
		}
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error: "Resource conflict",
			Code:  "CONFLICT",
		}

	// Validation errors
	case errors.Is(err, apperrors.ErrSkillNameRequired),
		errors.Is(err, apperrors.ErrSkillNameTooLong),
		errors.Is(err, apperrors.ErrInvalidAvailability),
		errors.Is(err, apperrors.ErrInvalidSatisfaction),
		errors.Is(err, apperrors.ErrInvalidStatus),
		errors.Is(err, apperrors.ErrInvalidPriority),
		errors.Is(err, apperrors.ErrInvalidImpact),
		errors.Is(err, apperrors.ErrInvalidUrgency):
		return http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		}

	// Business rule violations
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		return http.StatusConflict, ErrorResponse{
			Error: "Invalid status transition",
			Code:  "INVALID_STATUS_TRANSITION",
		}

	// Rate limiting
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests. Please try again later.",
			Code:  "RATE_LIMITED",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// logError logs the error with the request-scoped logger
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error) {
	logger := logging.LoggerFromContext(r.Context(), h.logger)
	logAttrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	switch {
	case statusCode >= 500:
		logger.Error("server error", logAttrs...)
	case statusCode >= 400:
		logger.Warn("client error", logAttrs...)
	default:
		logger.Info("request error", logAttrs...)
	}
}

func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	WriteJSON(w, statusCode, response)
}

func (h *ErrorHandler) writeValidationErrorResponse(w http.ResponseWriter, errs *apperrors.ValidationErrors) {
	WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: errs.Errors,
	})
}

// HandleError Helper function to handle errors inline in handlers
// Usage: if HandleError(w, r, err, h.errorHandler) { return }
func HandleError(w http.ResponseWriter, r *http.Request, err error, handler *ErrorHandler) bool {
	if err != nil {
		handler.Handle(w, r, err)
		return true
	}
	return false
}
