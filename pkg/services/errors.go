// Package services provides the application service layer between the HTTP
// API / scheduler and the engine and storage.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400 responses, conflict
// errors to 409.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrStagesRequired       = errors.New("workflow must have at least one stage")
	ErrDuplicateStageID     = errors.New("duplicate stage id")
	ErrUnknownDependency    = errors.New("depends_on references an unknown stage id")
	ErrUnknownCredentials   = errors.New("credentials_key references an unknown credential set")
	ErrConnectorRequired    = errors.New("connector_method stages require connector and method")
	ErrInvalidSchedule      = errors.New("invalid schedule expression")
	ErrInvalidParameters    = errors.New("invalid stage parameters")

	ErrWorkflowExists = errors.New("workflow already exists")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrStagesRequired) ||
		errors.Is(err, ErrDuplicateStageID) ||
		errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrUnknownCredentials) ||
		errors.Is(err, ErrConnectorRequired) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidParameters)
}

// IsConflictError checks if an error should surface as HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowExists)
}
