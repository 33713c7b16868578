// Package pdfx extracts plain text from uploaded resumes. PDF parsing is done
// in-process; plain-text uploads pass through with sanitization only.
package pdfx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/resumehq/resume-evaluator/internal/domain"
	"github.com/resumehq/resume-evaluator/pkg/textx"
)

// Extractor implements domain.TextExtractor for PDF and plain-text uploads.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor { return &Extractor{} }

// Extract sniffs the payload type and returns sanitized text. The filename is
// used for error messages only; type detection goes by content.
func (e *Extractor) Extract(_ domain.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file %q", domain.ErrInvalidArgument, filename)
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: parse pdf %q: %v", domain.ErrInvalidArgument, filename, err)
		}
		text = collapse(textx.Sanitize(text))
		if text == "" {
			return "", fmt.Errorf("%w: no extractable text in %q", domain.ErrInvalidArgument, filename)
		}
		return text, nil
	case mt.Is("text/plain"):
		text := strings.TrimSpace(textx.Sanitize(string(data)))
		if text == "" {
			return "", fmt.Errorf("%w: no extractable text in %q", domain.ErrInvalidArgument, filename)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %s for %q", domain.ErrInvalidArgument, mt.String(), filename)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// collapse normalizes runs of whitespace to single spaces. PDF extraction
// yields arbitrary spacing between glyph runs; the evaluation prompt only
// needs the word stream.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
