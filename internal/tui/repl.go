package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// runPlain is the non-TTY chat loop: one question per line, answer and
// sources printed beneath it.
func runPlain(ctx context.Context, service Asker, cfg Config) error {
	w := cfg.Output
	if cfg.Summary != "" {
		fmt.Fprintln(w, cfg.Summary)
	}
	fmt.Fprintln(w, `Type a question and press Enter ("exit" to quit).`)

	scanner := bufio.NewScanner(cfg.Input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := service.Ask(ctx, question)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}

		fmt.Fprintln(w, answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Fprintln(w, formatSources(answer.Sources))
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
