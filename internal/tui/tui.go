// Package tui provides the interactive chat surface. Interactive
// terminals get a Bubble Tea session; pipes and CI fall back to a plain
// line-oriented REPL on the same pipeline.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Config configures the chat session.
type Config struct {
	Input      io.Reader
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Summary    string // One-line status shown under the header
}

// Run starts a chat session over the pipeline and blocks until the user
// quits or the context ends.
func Run(ctx context.Context, service Asker, cfg Config) error {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if DetectNoColor() {
		cfg.NoColor = true
	}

	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return runPlain(ctx, service, cfg)
	}

	styles := GetStyles(cfg.NoColor)
	model := NewModel(service, cfg.Summary, styles)

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cfg.Input),
		tea.WithOutput(cfg.Output),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("chat session: %w", err)
	}
	return nil
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
