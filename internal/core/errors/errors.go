package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Lookup failures. Each wraps ErrNotFound so callers can match either.
	ErrNotFound           = errors.New("resource not found")
	ErrSkillNotFound      = fmt.Errorf("skill %w", ErrNotFound)
	ErrTechnicianNotFound = fmt.Errorf("technician %w", ErrNotFound)
	ErrTicketNotFound     = fmt.Errorf("ticket %w", ErrNotFound)

	// Assignment engine
	ErrNoEligibleTechnician = errors.New("no eligible technician")
	ErrOverCapacity         = errors.New("technician over capacity")
	ErrTicketTerminal       = errors.New("ticket is in a terminal state")
	ErrConfiguration        = errors.New("configuration error")
	ErrQueueFull            = errors.New("dispatch queue full")
	ErrDispatcherStopped    = errors.New("dispatcher stopped")

	// Routing races. Both wrap ErrConflict.
	ErrTicketHeld      = fmt.Errorf("ticket is held by another technician: %w", ErrConflict)
	ErrRoutingConflict = fmt.Errorf("ticket changed while it was being routed: %w", ErrConflict)

	// Skill validation
	ErrSkillNameRequired = errors.New("skill name is required")
	ErrSkillNameTooLong  = errors.New("skill name exceeds maximum length")
	ErrSkillExists       = errors.New("skill already exists")

	// Technician validation
	ErrInvalidAvailability = errors.New("invalid availability status")
	ErrInvalidSatisfaction = errors.New("satisfaction rating must be between 0 and 5")

	// Ticket validation
	ErrInvalidPriority         = errors.New("invalid ticket priority")
	ErrInvalidImpact           = errors.New("invalid ticket impact")
	ErrInvalidUrgency          = errors.New("invalid ticket urgency")
	ErrInvalidStatus           = errors.New("invalid ticket status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// Generic
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

// NewConfigurationError marks a startup configuration problem.
func NewConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
