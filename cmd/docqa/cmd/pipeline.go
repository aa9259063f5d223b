package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/embed"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/logging"
	"github.com/docqa/docqa/internal/rag"
)

// loadConfig resolves the project root and loads configuration with
// defaults filled in. A missing config file is fine; a present but
// invalid one is a hard error, never a fallback to defaults.
func loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	return config.Load(root)
}

// setupFileLogging routes slog to the log file. Stdio surfaces (MCP
// serve, the chat TUI) pass writeToStderr=false to keep the terminal
// clean. Returns a no-op cleanup when setup fails; logging is not
// critical for the CLI.
func setupFileLogging(cfg *config.Config, writeToStderr bool) func() {
	if debugMode {
		// --debug already configured the default logger
		return func() {}
	}

	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = writeToStderr
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// buildPipeline wires the embedder, LLM client and pipeline from config.
// offline forces static embeddings regardless of the configured provider.
func buildPipeline(ctx context.Context, cfg *config.Config, offline bool) (*rag.Pipeline, error) {
	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	if offline {
		provider = embed.ProviderStatic
	}

	// Bound embedder init so an unreachable backend fails fast
	embedCtx, embedCancel := context.WithTimeout(ctx, 15*time.Second)
	embedder, err := embed.NewEmbedder(embedCtx, embed.FactoryConfig{
		Provider:  provider,
		Model:     cfg.Embeddings.Model,
		Host:      cfg.Embeddings.Host,
		BatchSize: cfg.Embeddings.BatchSize,
		CacheSize: cfg.Embeddings.CacheSize,
	})
	embedCancel()
	if err != nil {
		return nil, fmt.Errorf("embedder initialization failed: %w", err)
	}

	client := llm.NewOllamaClient(llm.OllamaConfig{
		BackendURL: cfg.LLM.BackendURL,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.GenerationTimeout(),
	})

	pipeline, err := rag.New(cfg, embedder, client, slog.Default())
	if err != nil {
		_ = embedder.Close()
		_ = client.Close()
		return nil, err
	}
	return pipeline, nil
}

// initPipeline builds and initializes a ready-to-ask pipeline,
// reusing a persisted knowledge base when one exists.
func initPipeline(ctx context.Context, cfg *config.Config, offline bool) (*rag.Pipeline, error) {
	pipeline, err := buildPipeline(ctx, cfg, offline)
	if err != nil {
		return nil, err
	}
	if _, err := pipeline.Initialize(ctx, false); err != nil {
		_ = pipeline.Close()
		return nil, err
	}
	return pipeline, nil
}
