package services

import (
	"errors"
	"testing"
)

func TestExtractDocumentTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractDocumentText("notes.txt", "text/plain", []byte("just some text"))
	if !errors.Is(err, ErrUnsupportedDocumentType) {
		t.Fatalf("expected ErrUnsupportedDocumentType, got %v", err)
	}
}

func TestExtractDocumentTextRejectsDocx(t *testing.T) {
	// Word files start with the zip magic, not %PDF-.
	_, err := ExtractDocumentText("syllabus.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK\x03\x04rest"))
	if !errors.Is(err, ErrUnsupportedDocumentType) {
		t.Fatalf("expected ErrUnsupportedDocumentType, got %v", err)
	}
}

func TestExtractDocumentTextClaimedPDFWithoutHeader(t *testing.T) {
	_, err := ExtractDocumentText("syllabus.pdf", "application/pdf", []byte("not actually a pdf"))
	if !errors.Is(err, ErrTextExtractionFailed) {
		t.Fatalf("expected ErrTextExtractionFailed, got %v", err)
	}
	if errors.Is(err, ErrUnsupportedDocumentType) {
		t.Fatalf("a claimed pdf is a failed extraction, not an unsupported type")
	}
}

func TestExtractDocumentTextEmptyFile(t *testing.T) {
	_, err := ExtractDocumentText("syllabus.pdf", "application/pdf", nil)
	if !errors.Is(err, ErrTextExtractionFailed) {
		t.Fatalf("expected ErrTextExtractionFailed, got %v", err)
	}
}

func TestExtractDocumentTextCorruptPDFBody(t *testing.T) {
	// Valid magic, garbage body: the reader fails and the error wraps the
	// extraction-failed sentinel.
	_, err := ExtractDocumentText("syllabus.pdf", "application/pdf", []byte("%PDF-1.7 garbage"))
	if !errors.Is(err, ErrTextExtractionFailed) {
		t.Fatalf("expected ErrTextExtractionFailed, got %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF([]byte("%PDF-1.4\n")) {
		t.Fatal("expected %PDF- header to be recognized")
	}
	if isPDF([]byte("%PDX")) {
		t.Fatal("short/wrong header must not be recognized")
	}
}
