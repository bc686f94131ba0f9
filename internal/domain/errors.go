// Package domain defines the query model, backend ports, and errors shared by
// the compiler and the serving layers.
package domain

import "fmt"

// ValidationError indicates a query that must not reach the compiler.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates an unknown resource, such as a dialect or backend.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ExecutionError wraps a failure reported by the database engine.
type ExecutionError struct {
	Backend string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}
