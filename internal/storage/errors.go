package storage

import (
	"errors"
	"fmt"
)

// Common storage errors.
var (
	// ErrDuplicateReceipt signals that a receipt with the same content hash
	// already exists. Callers treat this as an outcome, not a failure.
	ErrDuplicateReceipt = errors.New("receipt with identical content already stored")

	// ErrReceiptNotFound signals a lookup miss by receipt ID.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrCounterpartyNotFound signals a lookup miss by counterparty ID or key.
	ErrCounterpartyNotFound = errors.New("counterparty not found")
)

// StorageError wraps a database failure with the operation that caused it.
type StorageError struct {
	Op      string
	Err     error
	Details string
}

func (e *StorageError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return errors.Is(e.Err, target) }

func wrapStorageError(op string, err error, details string) *StorageError {
	return &StorageError{Op: op, Err: err, Details: details}
}
