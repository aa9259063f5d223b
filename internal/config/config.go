// Package config loads and validates docqa configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/docqa/config.yaml)
//  3. Project config (.docqa.yaml in the working directory)
//  4. Environment variables (DOCQA_*)
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// Config represents the complete docqa configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Docs       DocsConfig       `yaml:"docs" json:"docs"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// DocsConfig configures the document source.
type DocsConfig struct {
	// Directory is the root of the document corpus. Walked recursively.
	Directory string `yaml:"directory" json:"directory"`
}

// IndexConfig configures chunking and knowledge base persistence.
type IndexConfig struct {
	// ChunkSize is the sliding window size in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the number of characters shared between
	// consecutive chunks. Must be smaller than ChunkSize.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// StorePath is the directory holding the persisted knowledge base
	// (HNSW vectors, SQLite records, ingest lock).
	StorePath string `yaml:"store_path" json:"store_path"`
	// WatchDebounce is the quiet period before a --watch re-index.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// RetrievalConfig configures top-K retrieval.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k" json:"top_k"`
	// MinSimilarity drops matches below this cosine similarity.
	// 0 disables the floor.
	MinSimilarity float64 `yaml:"min_similarity" json:"min_similarity"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama" or "static" (offline).
	Provider string `yaml:"provider" json:"provider"`
	// Model is the Ollama embedding model name.
	Model string `yaml:"model" json:"model"`
	// Host is the Ollama API endpoint. Empty uses http://localhost:11434.
	Host string `yaml:"host" json:"host"`
	// BatchSize is texts per /api/embed request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	// BackendURL is the Ollama API endpoint used for generation.
	BackendURL string `yaml:"backend_url" json:"backend_url"`
	// Model is the generation model name.
	Model string `yaml:"model" json:"model"`
	// TimeoutSeconds bounds a single generation call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Defaults mirroring the shipped configs/docqa.yaml.
const (
	DefaultDocsDirectory  = "data/product_docs"
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 200
	DefaultStorePath      = ".docqa"
	DefaultTopK           = 5
	DefaultEmbeddingModel = "all-minilm"
	DefaultLLMBackendURL  = "http://localhost:11434"
	DefaultLLMModel       = "tinyllama"
	DefaultLLMTimeoutSecs = 120
)

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Docs: DocsConfig{
			Directory: DefaultDocsDirectory,
		},
		Index: IndexConfig{
			ChunkSize:     DefaultChunkSize,
			ChunkOverlap:  DefaultChunkOverlap,
			StorePath:     DefaultStorePath,
			WatchDebounce: "500ms",
		},
		Retrieval: RetrievalConfig{
			TopK:          DefaultTopK,
			MinSimilarity: 0,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     DefaultEmbeddingModel,
			Host:      "", // Empty uses the embedder default
			BatchSize: 32,
			CacheSize: 1000,
		},
		LLM: LLMConfig{
			BackendURL:     DefaultLLMBackendURL,
			Model:          DefaultLLMModel,
			TimeoutSeconds: DefaultLLMTimeoutSecs,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docqa/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docqa/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docqa", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docqa", "config.yaml")
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml")
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .docqa.yaml or .docqa.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".docqa.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".docqa.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return qaerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	// -1 marks chunk_overlap absent from the file; an explicit 0 is a
	// valid setting and must override the default.
	parsed.Index.ChunkOverlap = -1
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return qaerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	// Merge parsed values with defaults (only set values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges set values from other into c. Absent fields are the
// zero value, except ChunkOverlap where -1 means absent.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Docs.Directory != "" {
		c.Docs.Directory = other.Docs.Directory
	}

	if other.Index.ChunkSize != 0 {
		c.Index.ChunkSize = other.Index.ChunkSize
	}
	if other.Index.ChunkOverlap >= 0 {
		c.Index.ChunkOverlap = other.Index.ChunkOverlap
	}
	if other.Index.StorePath != "" {
		c.Index.StorePath = other.Index.StorePath
	}
	if other.Index.WatchDebounce != "" {
		c.Index.WatchDebounce = other.Index.WatchDebounce
	}

	if other.Retrieval.TopK != 0 {
		c.Retrieval.TopK = other.Retrieval.TopK
	}
	if other.Retrieval.MinSimilarity != 0 {
		c.Retrieval.MinSimilarity = other.Retrieval.MinSimilarity
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Host != "" {
		c.Embeddings.Host = other.Embeddings.Host
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.LLM.BackendURL != "" {
		c.LLM.BackendURL = other.LLM.BackendURL
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.TimeoutSeconds != 0 {
		c.LLM.TimeoutSeconds = other.LLM.TimeoutSeconds
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies DOCQA_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCQA_DOCS_DIRECTORY"); v != "" {
		c.Docs.Directory = v
	}
	if v := os.Getenv("DOCQA_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("DOCQA_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Index.ChunkOverlap = n
		}
	}
	if v := os.Getenv("DOCQA_STORE_PATH"); v != "" {
		c.Index.StorePath = v
	}
	if v := os.Getenv("DOCQA_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.TopK = n
		}
	}
	if v := os.Getenv("DOCQA_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCQA_EMBEDDING_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCQA_OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("DOCQA_LLM_BACKEND_URL"); v != "" {
		c.LLM.BackendURL = v
	}
	if v := os.Getenv("DOCQA_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("DOCQA_GENERATION_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DOCQA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Docs.Directory == "" {
		return qaerrors.ConfigError("docs.directory must not be empty", nil)
	}

	if c.Index.ChunkSize <= 0 {
		return qaerrors.ConfigError(
			fmt.Sprintf("index.chunk_size must be positive, got %d", c.Index.ChunkSize), nil)
	}
	if c.Index.ChunkOverlap < 0 {
		return qaerrors.ConfigError(
			fmt.Sprintf("index.chunk_overlap must be non-negative, got %d", c.Index.ChunkOverlap), nil)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return qaerrors.ConfigError(
			fmt.Sprintf("index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
				c.Index.ChunkOverlap, c.Index.ChunkSize), nil)
	}
	if c.Index.StorePath == "" {
		return qaerrors.ConfigError("index.store_path must not be empty", nil)
	}

	if c.Retrieval.TopK <= 0 {
		return qaerrors.ConfigError(
			fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK), nil)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return qaerrors.ConfigError(
			fmt.Sprintf("retrieval.min_similarity must be between 0 and 1, got %f", c.Retrieval.MinSimilarity), nil)
	}

	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return qaerrors.ConfigError(
			fmt.Sprintf("embeddings.provider must be 'ollama' or 'static', got %s", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Model == "" {
		return qaerrors.ConfigError("embeddings.model must not be empty", nil)
	}

	if c.LLM.Model == "" {
		return qaerrors.ConfigError("llm.model must not be empty", nil)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return qaerrors.ConfigError(
			fmt.Sprintf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds), nil)
	}
	if u, err := url.Parse(c.LLM.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return qaerrors.ConfigError(
			fmt.Sprintf("llm.backend_url must be a valid URL, got %q", c.LLM.BackendURL), err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		return qaerrors.ConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// GenerationTimeout returns the generation deadline as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// WatchDebounce returns the parsed watch debounce interval.
// Falls back to 500ms on parse failure.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Index.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .docqa.yaml/.yml file by walking up
// the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".docqa.yaml")) ||
			fileExists(filepath.Join(currentDir, ".docqa.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
