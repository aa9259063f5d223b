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
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	format  string // "text", "json"
	keyword bool
	offline bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve matching document chunks without generating an answer",
		Long: `Retrieve the document chunks most similar to a query.

This runs embedding and vector search only; no LLM call is made.
Useful for inspecting what the knowledge base contains and what an
answer would be grounded in.

Examples:
  docqa search "rate limits"
  docqa search "password reset" --format json
  docqa search "error code 42" --keyword`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			query := strings.Join(args, " ")
			return runSearch(ctx, cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.keyword, "keyword", "k", false, "Use full-text keyword search instead of vector similarity")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no Ollama required)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
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

	search := pipeline.Search
	if opts.keyword {
		search = pipeline.Keyword
	}
	results, err := search(ctx, query)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("", "Found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		if opts.keyword {
			out.Statusf("", "%d. %s", i+1, r.SourcePath)
		} else {
			out.Statusf("", "%d. %s (score: %.2f)", i+1, r.SourcePath, r.Score)
		}
		for _, line := range getSnippet(r.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

// getSnippet returns the first n lines of content.
func getSnippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
