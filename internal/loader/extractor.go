package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor extracts plain text from a single file.
type TextExtractor interface {
	// Extract returns the plain text content of the file at path.
	Extract(path string) (string, error)
}

// extractors maps lowercased extensions (without the dot) to extractors.
// Extensions not present here are skipped by the loader.
func defaultExtractors() map[string]TextExtractor {
	plain := PlainTextExtractor{}
	return map[string]TextExtractor{
		"txt":      plain,
		"md":       plain,
		"markdown": plain,
		"pdf":      PDFExtractor{},
	}
}

// PlainTextExtractor reads a file as UTF-8 text. Markdown is treated as
// plain text; the markup survives into chunks, which keeps heading
// context available to retrieval.
type PlainTextExtractor struct{}

// Extract implements TextExtractor.
func (PlainTextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PDFExtractor extracts the plain text layer of a PDF file.
type PDFExtractor struct{}

// Extract implements TextExtractor.
// The pdf reader panics on some malformed files; the recover turns those
// into ordinary extraction errors so the loader can degrade per file.
func (PDFExtractor) Extract(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("pdf has no extractable text layer")
	}
	return text, nil
}

var (
	_ TextExtractor = PlainTextExtractor{}
	_ TextExtractor = PDFExtractor{}
)
