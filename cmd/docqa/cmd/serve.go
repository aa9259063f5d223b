package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline to MCP clients over stdio",
		Long: `Run the MCP server on stdio.

Exposes ask, search and status tools to MCP clients such as AI coding
assistants. The knowledge base is built on startup if missing.

The MCP protocol requires stdout to carry JSON-RPC messages
exclusively, so all diagnostics go to the log file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no Ollama required for retrieval)")

	return cmd
}

func runServe(ctx context.Context, offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Stdout belongs to JSON-RPC; never write diagnostics to the terminal
	cleanup := setupFileLogging(cfg, false)
	defer cleanup()

	pipeline, err := initPipeline(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	server, err := mcp.NewServer(pipeline, nil)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
