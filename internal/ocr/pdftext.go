package ocr

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"finanzamt/internal/logger"
)

// PDFTextExtractor implements TextExtractor for digital PDFs and plain-text
// files. Image-only PDFs yield ErrEmptyDocument; they need a real OCR front
// end upstream.
type PDFTextExtractor struct {
	log zerolog.Logger
}

// NewPDFTextExtractor creates the default text extractor.
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{
		log: logger.WithComponent("ocr"),
	}
}

// ExtractText extracts text from PDF data.
func (x *PDFTextExtractor) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	result, err := x.extractWithMetadata(ctx, r)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ExtractTextFromFile extracts text from a document on disk. PDFs are parsed
// page by page; .txt files are read verbatim.
func (x *PDFTextExtractor) ExtractTextFromFile(ctx context.Context, path string) (string, error) {
	const op = "ExtractTextFromFile"

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return "", WrapOCRError(op, err, "open document")
		}
		defer f.Close()
		return x.ExtractText(ctx, f)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", WrapOCRError(op, err, "read document")
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return "", NewOCRError(op, ErrEmptyDocument, path)
		}
		return text, nil
	default:
		return "", NewOCRError(op, ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (x *PDFTextExtractor) extractWithMetadata(ctx context.Context, r io.Reader) (*Result, error) {
	const op = "ExtractText"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, NewOCRError(op, ErrContextCanceled, "")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapOCRError(op, err, "read document data")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewOCRError(op, ErrInvalidPDF, err.Error())
	}

	var textBuilder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages fail to parse in otherwise readable documents.
			x.log.Warn().Err(err).Int("page", i).Msg("Skipping unparseable PDF page")
			continue
		}
		if text != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(text)
		}
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return nil, NewOCRError(op, ErrEmptyDocument, "PDF has no text layer")
	}

	result := &Result{
		Text:               extracted,
		PageCount:          numPages,
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(start),
	}

	x.log.Debug().
		Int("pages", result.PageCount).
		Int("text_length", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("Text extraction completed")

	return result, nil
}
