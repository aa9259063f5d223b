// Package chunk splits document text into fixed-size overlapping windows
// for embedding and retrieval.
package chunk

// Chunk is a contiguous slice of a document's content.
type Chunk struct {
	// ID is deterministic, derived from the source path and start offset.
	// Re-chunking unchanged input yields identical IDs.
	ID string

	// DocumentID identifies the source document.
	DocumentID string

	// SourcePath is the path of the file the chunk came from.
	SourcePath string

	// Content is the chunk text.
	Content string

	// StartOffset and EndOffset are rune offsets into the document
	// content, half-open [start, end).
	StartOffset int
	EndOffset   int
}
