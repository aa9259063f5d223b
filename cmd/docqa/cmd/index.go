package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/loader"
	"github.com/docqa/docqa/internal/output"
	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var (
		force   bool
		watch   bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the knowledge base from the docs directory",
		Long: `Index the configured docs directory into the local knowledge base.

Documents are loaded, split into overlapping chunks, embedded and
stored. An existing knowledge base is reused unless --force is given.

Use --watch to keep the process running and re-index automatically
when documents change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, force, watch, offline)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the existing knowledge base and rebuild from scratch")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-index when documents change")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no Ollama required)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, force, watch, offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup := setupFileLogging(cfg, false)
	defer cleanup()

	out := output.New(cmd.OutOrStdout())

	pipeline, err := buildPipeline(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	if force {
		out.Status("", "Discarding existing knowledge base, rebuilding from scratch...")
	}

	stats, err := pipeline.Initialize(ctx, force)
	if err != nil {
		return err
	}
	printIngestStats(out, cfg, stats)

	if !watch {
		return nil
	}
	return watchAndReindex(ctx, cfg, pipeline, out)
}

func printIngestStats(out *output.Writer, cfg *config.Config, stats *rag.IngestStats) {
	if stats.DocumentsLoaded == 0 && stats.ChunksIndexed > 0 {
		out.Successf("Reusing knowledge base with %d chunks (use --force to rebuild)", stats.ChunksIndexed)
		return
	}

	out.Successf("Indexed %d documents into %d chunks in %s",
		stats.DocumentsLoaded, stats.ChunksIndexed, stats.Duration.Round(10*time.Millisecond))
	if stats.FilesSkipped > 0 {
		out.Statusf("", "Skipped %d unsupported files", stats.FilesSkipped)
	}
	if stats.FilesFailed > 0 {
		out.Warningf("%d files could not be read (see log for details)", stats.FilesFailed)
	}
	if stats.ChunksIndexed == 0 {
		out.Warningf("No documents found in %s; questions will fail until documents are added", cfg.Docs.Directory)
	}
}

// watchAndReindex blocks, rebuilding the knowledge base whenever a
// debounced batch of document changes arrives.
func watchAndReindex(ctx context.Context, cfg *config.Config, pipeline *rag.Pipeline, out *output.Writer) error {
	extensions := loader.New(cfg.Docs.Directory, slog.Default()).SupportedExtensions()

	w, err := watcher.New(cfg.WatchDebounce(), extensions, slog.Default())
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, cfg.Docs.Directory)
	}()

	out.Statusf("", "Watching %s for changes (Ctrl+C to stop)...", cfg.Docs.Directory)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err == context.Canceled {
				return nil
			}
			return err
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			out.Statusf("", "%d document changes detected, re-indexing...", len(batch))
			stats, err := pipeline.Initialize(ctx, true)
			if err != nil {
				out.Errorf("Re-index failed: %v", err)
				slog.Error("reindex failed", slog.String("error", err.Error()))
				continue
			}
			out.Successf("Re-indexed %d documents into %d chunks",
				stats.DocumentsLoaded, stats.ChunksIndexed)
		case err := <-w.Errors():
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
