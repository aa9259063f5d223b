// Package rag orchestrates the question answering pipeline: document
// ingestion into the knowledge store, retrieval of relevant chunks, and
// grounded answer generation.
package rag

import "time"

// State is the pipeline lifecycle state.
type State int

const (
	// StateUninitialized means Initialize has not run.
	StateUninitialized State = iota

	// StateIndexing means ingestion is in progress. Questions fail fast
	// in this state rather than blocking.
	StateIndexing

	// StateReady means the pipeline answers questions.
	StateReady

	// StateFailed means initialization hit a fatal error.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetrievalResult is one retrieved chunk with its similarity score.
type RetrievalResult struct {
	ChunkID    string  `json:"chunk_id"`
	SourcePath string  `json:"source_path"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Answer is a generated response with its supporting sources.
type Answer struct {
	Question string            `json:"question"`
	Text     string            `json:"text"`
	Sources  []RetrievalResult `json:"sources"`
	Duration time.Duration     `json:"duration"`
}

// IngestStats summarises one ingestion run.
type IngestStats struct {
	DocumentsLoaded int           `json:"documents_loaded"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesFailed     int           `json:"files_failed"`
	ChunksIndexed   int           `json:"chunks_indexed"`
	Duration        time.Duration `json:"duration"`
}

// Status is a point-in-time pipeline snapshot.
type Status struct {
	State            string    `json:"state"`
	ChunkCount       int       `json:"chunk_count"`
	EmbeddingModel   string    `json:"embedding_model"`
	Dimensions       int       `json:"dimensions"`
	LLMModel         string    `json:"llm_model"`
	BackendAvailable bool      `json:"backend_available"`
	LastIndexed      time.Time `json:"last_indexed,omitempty"`
	StorePath        string    `json:"store_path"`
	DocsDirectory    string    `json:"docs_directory"`
}
