// Package source produces the raw text the dashboard parses: the combined
// output of the configured scontrol commands, run locally or on a login node
// over SSH, or read back from a captured file.
package source

import (
	"context"
	"strings"

	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/logger"
)

// Output is the result of one fetch. Any text is accepted; a non-zero
// ExitCode means the poll failed even if Text is non-empty.
type Output struct {
	Text     string
	Stderr   string
	ExitCode int
}

// Source fetches one Output per poll. Implementations must honor ctx
// cancellation and return promptly once it ends.
type Source interface {
	Fetch(ctx context.Context) (Output, error)
	// Describe names where the data comes from, e.g. "local" or "ssh login1".
	Describe() string
}

// New picks the source for cfg: replay file, SSH host, or local commands.
func New(cfg *config.Config, log logger.Logger) Source {
	switch {
	case cfg.Source.ReplayFile != "":
		return NewFileSource(cfg.Source.ReplayFile)
	case cfg.Source.SSHHost != "":
		return NewSSHSource(cfg.Source.SSHHost, cfg.Source.Commands, cfg.Timeout, log)
	default:
		return NewCommandSource(cfg.Source.Commands, log)
	}
}

// combine joins per-command results in command order. Each chunk is
// terminated by a blank line so the last record of one command never runs
// into the first record of the next.
func combine(parts []Output) Output {
	var text, stderr strings.Builder
	out := Output{}
	for _, p := range parts {
		if p.Text != "" {
			text.WriteString(strings.TrimRight(p.Text, "\n"))
			text.WriteString("\n\n")
		}
		if p.Stderr != "" {
			stderr.WriteString(p.Stderr)
			if !strings.HasSuffix(p.Stderr, "\n") {
				stderr.WriteString("\n")
			}
		}
		if out.ExitCode == 0 && p.ExitCode != 0 {
			out.ExitCode = p.ExitCode
		}
	}
	out.Text = text.String()
	out.Stderr = stderr.String()
	return out
}
