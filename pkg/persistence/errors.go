// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkspaceNotFound indicates a workspace was not found by the given identifier.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrWorkspaceAlreadyExists indicates a workspace with the same identifier already exists.
	ErrWorkspaceAlreadyExists = errors.New("workspace already exists")

	// ErrTabNotFound indicates a tab was not found by the given identifier.
	ErrTabNotFound = errors.New("tab not found")

	// ErrWidgetNotFound indicates a widget instance was not found by the given identifier.
	ErrWidgetNotFound = errors.New("widget instance not found")
)

// WorkspaceError wraps workspace-related errors with additional context.
type WorkspaceError struct {
	Op          string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkspaceID string // Workspace ID if applicable
	Err         error  // Underlying error
	Message     string // Additional context message
}

func (e *WorkspaceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workspace %s: %s (%v)", e.Op, e.WorkspaceID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workspace %s: %v", e.Op, e.WorkspaceID, e.Err)
}

func (e *WorkspaceError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workspace errors.
func (e *WorkspaceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkspaceError creates a new workspace error with context.
func NewWorkspaceError(op, workspaceID string, err error) *WorkspaceError {
	return &WorkspaceError{
		Op:          op,
		WorkspaceID: workspaceID,
		Err:         err,
	}
}

// IsWorkspaceNotFound checks if an error indicates a workspace was not found.
func IsWorkspaceNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound)
}

// IsTabNotFound checks if an error indicates a tab was not found.
func IsTabNotFound(err error) bool {
	return errors.Is(err, ErrTabNotFound)
}

// IsWidgetNotFound checks if an error indicates a widget instance was not found.
func IsWidgetNotFound(err error) bool {
	return errors.Is(err, ErrWidgetNotFound)
}
