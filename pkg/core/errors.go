// Package core provides the companion client: the chat turn, memory
// extraction, memory management and the recurring proactive tasks.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that no record matched the given id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates malformed caller input. It is returned before
	// any state is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateMemory indicates that a near-identical memory already exists.
	ErrDuplicateMemory = errors.New("duplicate memory detected")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that the completion service failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// CompanionError wraps errors with operation context.
//
// Example:
//
//	err := &CompanionError{
//	    Op:  "Chat",
//	    Err: ErrInvalidInput,
//	}
//	// Error() returns: "companion: Chat: invalid input"
type CompanionError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *CompanionError) Error() string {
	return fmt.Sprintf("companion: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CompanionError) Unwrap() error {
	return e.Err
}

// NewCompanionError creates a new CompanionError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewCompanionError("AddMemory", err)
//	}
func NewCompanionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CompanionError{
		Op:  op,
		Err: err,
	}
}

// storageError tags err with ErrStorageOperation while keeping it unwrappable.
func storageError(op string, err error) error {
	return NewCompanionError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
}

// llmError tags err with ErrLLMOperation while keeping it unwrappable.
func llmError(op string, err error) error {
	return NewCompanionError(op, fmt.Errorf("%w: %w", ErrLLMOperation, err))
}
