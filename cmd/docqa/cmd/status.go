package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/output"
)

func newStatusCmd() *cobra.Command {
	var (
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base and backend status",
		Long: `Show the state of the knowledge base and the LLM backend.

Reports chunk count, active models, embedding dimensions and whether
the Ollama backend is reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStatus(ctx, cmd, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no Ollama required)")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput, offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup := setupFileLogging(cfg, false)
	defer cleanup()

	pipeline, err := initPipeline(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	status := pipeline.Status(ctx)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "State:            %s", status.State)
	out.Statusf("", "Docs directory:   %s", status.DocsDirectory)
	out.Statusf("", "Store path:       %s", status.StorePath)
	out.Statusf("", "Chunks:           %d", status.ChunkCount)
	out.Statusf("", "Embedding model:  %s (%d dimensions)", status.EmbeddingModel, status.Dimensions)
	out.Statusf("", "LLM model:        %s", status.LLMModel)
	if status.BackendAvailable {
		out.Success("Ollama backend reachable")
	} else {
		out.Warning("Ollama backend unreachable (generation will fail)")
	}
	if !status.LastIndexed.IsZero() {
		out.Statusf("", "Last indexed:     %s", status.LastIndexed.Format(time.RFC3339))
	}
	return nil
}
