// Package ocr extracts raw text from receipt documents.
//
// The extraction pipeline consumes this package purely as "given a document,
// return its text": preprocessing (DPI, language hints, image cleanup) is the
// extractor's concern, never the pipeline's. The bundled implementation reads
// digital PDFs and plain-text files; scanned images need an external OCR
// front end that satisfies the same interface.
package ocr

import (
	"context"
	"io"
	"time"
)

// TextExtractor is the raw-text collaborator contract. A single blocking
// call producing text, or a recoverable error when the document cannot be
// opened or contains no extractable text.
type TextExtractor interface {
	// ExtractText returns the concatenated text of all pages.
	ExtractText(ctx context.Context, r io.Reader) (string, error)

	// ExtractTextFromFile reads and extracts a document from disk, choosing
	// the extraction strategy by file extension.
	ExtractTextFromFile(ctx context.Context, path string) (string, error)
}

// Result carries extracted text with processing metadata.
type Result struct {
	// Text is the extracted content, pages concatenated in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages processed.
	PageCount int `json:"page_count"`

	// ProcessedAt is when extraction completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the extraction took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
