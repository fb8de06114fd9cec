package source

import (
	"context"
	"strings"

	"github.com/rileyhilliard/sgpu/internal/exec"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"golang.org/x/sync/errgroup"
)

// CaptureFunc runs one argv and captures its output.
type CaptureFunc func(ctx context.Context, argv []string) (*exec.Result, error)

// CommandSource runs the status commands on this machine, concurrently.
type CommandSource struct {
	commands [][]string
	capture  CaptureFunc
	log      logger.Logger
}

// NewCommandSource creates a source running commands with exec.CaptureContext.
func NewCommandSource(commands [][]string, log logger.Logger) *CommandSource {
	return &CommandSource{
		commands: commands,
		capture:  exec.CaptureContext,
		log:      log,
	}
}

// WithCapture replaces the process runner. Used by tests.
func (s *CommandSource) WithCapture(fn CaptureFunc) *CommandSource {
	s.capture = fn
	return s
}

// Describe implements Source.
func (s *CommandSource) Describe() string {
	return "local"
}

// Fetch runs every command and combines their output in configured order.
// The first execution error cancels the remaining commands.
func (s *CommandSource) Fetch(ctx context.Context) (Output, error) {
	parts := make([]Output, len(s.commands))

	g, gCtx := errgroup.WithContext(ctx)
	for i, argv := range s.commands {
		g.Go(func() error {
			res, err := s.capture(gCtx, argv)
			if err != nil {
				return err
			}
			if notFound := exec.HandleExecError(argv, string(res.Stderr), res.ExitCode, "locally"); notFound != nil {
				return notFound
			}
			s.log.Debug("%s: exit %d, %d bytes", strings.Join(argv, " "), res.ExitCode, len(res.Stdout))
			parts[i] = Output{
				Text:     string(res.Stdout),
				Stderr:   string(res.Stderr),
				ExitCode: res.ExitCode,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Output{ExitCode: -1}, err
	}
	return combine(parts), nil
}
