package services

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ErrUnsupportedDocumentType is returned before any extraction work happens,
// so a rejected upload never reaches the language-model service.
var ErrUnsupportedDocumentType = errors.New("unsupported document type: only PDF files can be processed automatically")

// ErrTextExtractionFailed covers documents that claim to be PDFs but cannot
// be parsed at all.
var ErrTextExtractionFailed = errors.New("could not extract text from document")

// ExtractDocumentText pulls the plain text out of an uploaded document. Only
// PDF is supported; the true type is sniffed from the bytes rather than
// trusted from the name or mime type. Text is taken page by page in page
// order and joined with newlines. There is no OCR: a PDF without an embedded
// text layer yields empty (or garbage) text, which downstream stages must
// tolerate by producing zero events.
func ExtractDocumentText(originalName, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file %q", ErrTextExtractionFailed, originalName)
	}

	if isPDF(data) {
		return extractPDFText(data)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt == "application/pdf" || ext == ".pdf" {
		return "", fmt.Errorf("%w: file %q claims pdf but is missing the %%PDF header", ErrTextExtractionFailed, originalName)
	}

	return "", fmt.Errorf("%w (name=%s mime=%s)", ErrUnsupportedDocumentType, originalName, mimeType)
}

// PDF starts with "%PDF-"
func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextExtractionFailed, err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page loses that page, not the document.
			continue
		}
		pages = append(pages, text)
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}
