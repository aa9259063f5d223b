package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/output"
	"github.com/docqa/docqa/internal/rag"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	format  string // "text", "json"
	sources bool
	offline bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question from the docs",
		Long: `Answer a question using the indexed documentation.

The knowledge base is built on first use and reused afterwards.
Answers are generated by the configured Ollama model and grounded in
retrieved document chunks.

Examples:
  docqa ask "How do I configure the widget?"
  docqa ask "What are the rate limits?" --sources
  docqa ask "How do I reset my password?" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			question := strings.Join(args, " ")
			return runAsk(ctx, cmd, question, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.sources, "sources", "s", false, "List the source chunks under the answer")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no Ollama required for retrieval)")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, opts askOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup := setupFileLogging(cfg, false)
	defer cleanup()

	pipeline, err := initPipeline(ctx, cfg, opts.offline)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	answer, err := pipeline.Ask(ctx, question)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	out := output.New(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), answer.Text)

	if opts.sources && len(answer.Sources) > 0 {
		out.Newline()
		printSources(out, answer.Sources)
	}
	return nil
}

func printSources(out *output.Writer, sources []rag.RetrievalResult) {
	out.Status("", "Sources:")
	for i, s := range sources {
		out.Statusf("", "%d. %s (score: %.2f)", i+1, s.SourcePath, s.Score)
	}
}
