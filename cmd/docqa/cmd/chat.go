package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/tui"
)

func newChatCmd() *cobra.Command {
	var (
		plain   bool
		noColor bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session over the docs",
		Long: `Start an interactive question answering session.

Interactive terminals get a full-screen chat UI; pipes and CI get a
plain line-oriented prompt. The knowledge base is built on first use
and reused afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, cmd, plain, noColor, offline)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Force plain text mode (no full-screen UI)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no Ollama required for retrieval)")

	return cmd
}

func runChat(ctx context.Context, cmd *cobra.Command, plain, noColor, offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The chat UI owns the terminal; keep log output in the file only
	cleanup := setupFileLogging(cfg, false)
	defer cleanup()

	pipeline, err := initPipeline(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	status := pipeline.Status(ctx)
	summary := fmt.Sprintf("%d chunks indexed from %s (model: %s)",
		status.ChunkCount, status.DocsDirectory, status.LLMModel)

	return tui.Run(ctx, pipeline, tui.Config{
		Input:      cmd.InOrStdin(),
		Output:     cmd.OutOrStdout(),
		ForcePlain: plain,
		NoColor:    noColor,
		Summary:    summary,
	})
}
