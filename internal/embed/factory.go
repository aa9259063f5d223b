package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings (offline fallback)
	ProviderStatic ProviderType = "static"
)

// FactoryConfig selects and configures the embedder to build.
type FactoryConfig struct {
	// Provider selects the embedder implementation (default: ollama)
	Provider ProviderType

	// Model is the embedding model name (Ollama only)
	Model string

	// Host is the Ollama API endpoint (Ollama only)
	Host string

	// BatchSize for batch embedding requests
	BatchSize int

	// CacheSize is the LRU cache capacity; 0 uses the default, negative
	// disables caching
	CacheSize int
}

// NewEmbedder creates an embedder based on provider type.
// The DOCQA_EMBEDDER environment variable overrides the configured provider:
//   - "ollama": Use OllamaEmbedder (default)
//   - "static": Use StaticEmbedder (deterministic, no external service)
//
// There is no silent fallback between providers: an index built with one
// model cannot be queried with another, so an unavailable backend is an
// error rather than a quiet downgrade.
//
// Query embedding caching is enabled by default. Set DOCQA_EMBED_CACHE=false
// to disable caching.
func NewEmbedder(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	provider := cfg.Provider
	if env := os.Getenv("DOCQA_EMBEDDER"); env != "" {
		provider = ParseProvider(env)
	}
	if provider == "" {
		provider = ProviderOllama
	}

	var embedder Embedder
	var err error

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()

	case ProviderOllama:
		embedder, err = newOllama(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: %s)",
			provider, strings.Join(ValidProviders(), ", "))
	}
	if err != nil {
		return nil, err
	}

	if !isCacheDisabled() && cfg.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}

	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("DOCQA_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// newOllama builds an Ollama embedder from factory settings plus
// environment overrides.
func newOllama(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	ocfg := DefaultOllamaConfig()
	if cfg.Model != "" {
		ocfg.Model = cfg.Model
	}
	if cfg.Host != "" {
		ocfg.Host = cfg.Host
	}
	if cfg.BatchSize > 0 {
		ocfg.BatchSize = cfg.BatchSize
	}

	if host := os.Getenv("DOCQA_OLLAMA_HOST"); host != "" {
		ocfg.Host = host
	}
	if model := os.Getenv("DOCQA_OLLAMA_MODEL"); model != "" {
		ocfg.Model = model
	}

	return NewOllamaEmbedder(ctx, ocfg)
}

// ParseProvider converts a string to ProviderType.
// Unknown values default to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{
		string(ProviderOllama),
		string(ProviderStatic),
	}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}
