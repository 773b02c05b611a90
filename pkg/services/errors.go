// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/mosaicdash/mosaic/pkg/layout"
	"github.com/mosaicdash/mosaic/pkg/mashup"
	"github.com/mosaicdash/mosaic/pkg/resolver"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkspaceNameEmpty   = errors.New("workspace name cannot be empty")
	ErrWorkspaceIDEmpty     = errors.New("workspace ID cannot be empty")
	ErrNoPreferencesGiven   = errors.New("no preferences given")
	ErrNoLayoutChangesGiven = errors.New("no layout changes given")
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkspaceNameEmpty) ||
		errors.Is(err, ErrWorkspaceIDEmpty) ||
		errors.Is(err, ErrNoPreferencesGiven) ||
		errors.Is(err, ErrNoLayoutChangesGiven) ||
		errors.Is(err, mashup.ErrInvalidTemplate) ||
		layout.IsValidationError(err)
}

// IsUnprocessableError checks if an error reports a semantically invalid
// request that should return HTTP 422, such as unresolvable template
// dependencies or unfilled required workspace parameters.
func IsUnprocessableError(err error) bool {
	return mashup.IsMissingDependencies(err) ||
		errors.Is(err, resolver.ErrMissingParams)
}
