package store

import (
	"errors"
	"fmt"
)

// Common store errors
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// Entity-specific variants wrap it (e.g., ErrTaskNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of an entity that must be unique.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being written, or when a database constraint rejects it.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation affects no rows.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin, commit or roll back.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInternal is returned for unexpected database failures. The
	// underlying driver error is never exposed to callers.
	ErrInternal = errors.New("internal store error")

	// ErrTaskNotFound indicates that the requested generation task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: generation task", ErrNotFound)

	// ErrSettingNotFound indicates that the requested setting key has no value.
	ErrSettingNotFound = fmt.Errorf("%w: setting", ErrNotFound)

	// ErrTemplateNotFound indicates that no prompt template has been stored.
	ErrTemplateNotFound = fmt.Errorf("%w: prompt template", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsInternalError checks if the error is an unexpected store failure.
func IsInternalError(err error) bool {
	return errors.Is(err, ErrInternal)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "task", "setting")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
