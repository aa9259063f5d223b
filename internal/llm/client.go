// Package llm generates answers with a language model backend. Ollama is
// the only backend; the Client interface exists so the pipeline and tests
// can substitute a fake.
package llm

import "context"

// Default generation settings.
const (
	// DefaultModel is the default generation model. tinyllama is small
	// enough to run on modest hardware.
	DefaultModel = "tinyllama"

	// DefaultBackendURL is the default Ollama endpoint.
	DefaultBackendURL = "http://localhost:11434"
)

// Client generates text completions.
type Client interface {
	// Generate returns the model's completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Available reports whether the backend is reachable and the model
	// is installed.
	Available(ctx context.Context) bool

	// ModelName returns the generation model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}
