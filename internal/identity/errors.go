package identity

import "fmt"

// StorageErrorType categorizes storage-layer failures for the postgres
// backend's error mapper, mirroring the category/operation/detail/safe-message
// shape the decision pipeline needs to stay fail-closed without leaking
// internals (see DESIGN.md).
type StorageErrorType int

const (
	ErrorUnknown StorageErrorType = iota
	ErrorNotFound
	ErrorAlreadyExists
	ErrorConstraintViolation
	ErrorInvalidData
	ErrorConnection
	ErrorTransactionFailed
)

// StorageError is the error type returned by the postgres-backed Store.
// Internal carries the detail for logs; Safe is what may ever reach a
// caller outside the store.
type StorageError struct {
	Type      StorageErrorType
	Operation string
	Internal  string
	Safe      string
}

func NewStorageError(t StorageErrorType, operation, internal, safe string) *StorageError {
	return &StorageError{Type: t, Operation: operation, Internal: internal, Safe: safe}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("identity storage: %s: %s", e.Operation, e.Internal)
}

// Retryable reports whether the error class is plausibly transient.
func (e *StorageError) Retryable() bool {
	switch e.Type {
	case ErrorConnection, ErrorTransactionFailed:
		return true
	default:
		return false
	}
}
