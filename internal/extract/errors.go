package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrStageFailed is returned when a stage exhausted all attempts without
	// producing a parseable result. Non-fatal: the controller absorbs it and
	// degrades the document to a partial record.
	ErrStageFailed = errors.New("extraction stage failed after all attempts")

	// ErrMissingKeys is returned when a parsed response lacks every expected
	// key for its stage. Treated as a parse failure for retry purposes.
	ErrMissingKeys = errors.New("response missing all expected keys")
)

// StageError wraps a stage failure with the stage name and attempt count.
type StageError struct {
	// Stage is the extraction stage that failed.
	Stage Stage

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// Err is the last underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("extract: stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed || errors.Is(e.Err, target)
}

// InvalidReceiptError is a hard validation failure: the merged record
// violates a business invariant and must not be persisted.
type InvalidReceiptError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *InvalidReceiptError) Error() string {
	return fmt.Sprintf("invalid receipt: field %q: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewInvalidReceiptError creates a new InvalidReceiptError.
func NewInvalidReceiptError(field string, value any, message string) *InvalidReceiptError {
	return &InvalidReceiptError{Field: field, Value: value, Message: message}
}
