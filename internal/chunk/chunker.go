package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// Default window parameters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping fixed-size windows.
// The window advances by size-overlap runes; the final window is clipped
// to the end of the text and may be shorter.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// Overlap must be non-negative and smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, qaerrors.ConfigError(
			fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	}
	if overlap < 0 || overlap >= size {
		return nil, qaerrors.ConfigError(
			fmt.Sprintf("chunk overlap must be in [0, %d), got %d", size, overlap), nil)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks the given document content. documentID and sourcePath are
// carried onto every chunk; sourcePath also seeds the deterministic chunk IDs.
// Whitespace-only content produces no chunks.
func (c *Chunker) Split(documentID, sourcePath, content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	runes := []rune(content)
	step := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			ID:          ChunkID(sourcePath, start),
			DocumentID:  documentID,
			SourcePath:  sourcePath,
			Content:     string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})
	}

	return chunks
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkID derives the deterministic chunk identifier from the source path
// and start offset.
func ChunkID(sourcePath string, startOffset int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourcePath, startOffset)))
	return "chunk_" + hex.EncodeToString(h[:])[:32]
}
