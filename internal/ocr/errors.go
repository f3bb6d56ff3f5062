package ocr

import (
	"errors"
	"fmt"
)

// Common text-extraction errors
var (
	// ErrInvalidPDF is returned when the provided data is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrEmptyDocument is returned when the document contains no extractable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrUnsupportedFormat is returned when the document format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrContextCanceled is returned when extraction is canceled via context.
	ErrContextCanceled = errors.New("text extraction was canceled")
)

// OCRError wraps errors with additional context about the extraction failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ExtractText").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
