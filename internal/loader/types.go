// Package loader discovers documents under the configured docs directory
// and extracts plain text from them by format.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document is one loaded source file.
type Document struct {
	// ID is deterministic, derived from the source path.
	ID string

	// SourcePath is the path relative to the docs directory.
	SourcePath string

	// Content is the extracted plain text.
	Content string

	// Format is the lowercased file extension without the dot
	// ("txt", "md", "pdf").
	Format string
}

// LoadResult summarises a loading run.
type LoadResult struct {
	// Documents holds the successfully extracted documents,
	// ordered by source path.
	Documents []Document

	// FilesSkipped counts files with unsupported extensions.
	FilesSkipped int

	// Warnings holds per-file extraction failures. These degrade the
	// run, they never abort it.
	Warnings []Warning
}

// Warning records one file that could not be loaded.
type Warning struct {
	Path string
	Err  error
}

// DocumentID derives the deterministic document identifier from the
// source path.
func DocumentID(sourcePath string) string {
	h := sha256.Sum256([]byte(sourcePath))
	return "doc_" + hex.EncodeToString(h[:])[:32]
}
