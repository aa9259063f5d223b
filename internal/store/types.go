// Package store persists the knowledge base: chunk records in SQLite and
// their embeddings in an HNSW vector index. This is the persistence layer
// for all ingested data.
package store

// KnowledgeRecord is one stored chunk with its embedding.
type KnowledgeRecord struct {
	ChunkID     string
	DocumentID  string
	SourcePath  string
	Content     string
	StartOffset int
	EndOffset   int
	Embedding   []float32
}

// Hit is a single retrieval result.
type Hit struct {
	ChunkID     string
	DocumentID  string
	SourcePath  string
	Content     string
	StartOffset int
	EndOffset   int

	// Score is normalized similarity in [0, 1], higher is better.
	Score float32
}

// State keys persisted alongside the records. Used to detect embedder
// changes between runs.
const (
	StateKeyModel      = "embedding_model"
	StateKeyDimensions = "embedding_dimensions"
)

// VectorResult is a raw nearest-neighbor match from the vector index.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Cosine distance, 0 (identical) to 2 (opposite)
	Score    float32 // Normalized similarity 1 - distance/2
}

// VectorIndexConfig configures the HNSW vector index.
type VectorIndexConfig struct {
	// Dimensions is the embedding dimension. All vectors must match.
	Dimensions int

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 20)
	EfSearch int
}

// DefaultVectorIndexConfig returns sensible defaults for the given
// embedding dimension.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}
