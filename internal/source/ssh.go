package source

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/sgpu/internal/exec"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/util"
	"github.com/rileyhilliard/sgpu/pkg/sshutil"
	"golang.org/x/sync/errgroup"
)

// DialFunc opens a connection to host.
type DialFunc func(ctx context.Context, host string, timeout time.Duration) (sshutil.Runner, error)

func dialSSH(ctx context.Context, host string, timeout time.Duration) (sshutil.Runner, error) {
	return sshutil.Dial(ctx, host, timeout)
}

// SSHSource runs the status commands on a login node. The connection is
// reused across polls and re-dialed after a transport failure.
type SSHSource struct {
	host     string
	commands [][]string
	timeout  time.Duration
	dial     DialFunc
	log      logger.Logger

	mu     sync.Mutex
	client sshutil.Runner
}

// NewSSHSource creates a source for host. timeout bounds connection setup.
func NewSSHSource(host string, commands [][]string, timeout time.Duration, log logger.Logger) *SSHSource {
	return &SSHSource{
		host:     host,
		commands: commands,
		timeout:  timeout,
		dial:     dialSSH,
		log:      log,
	}
}

// WithDial replaces the connection factory. Used by tests.
func (s *SSHSource) WithDial(fn DialFunc) *SSHSource {
	s.dial = fn
	return s
}

// Describe implements Source.
func (s *SSHSource) Describe() string {
	return "ssh " + s.host
}

// Fetch runs every command in its own session on the shared connection.
func (s *SSHSource) Fetch(ctx context.Context) (Output, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return Output{ExitCode: -1}, err
	}

	where := "on " + s.host
	parts := make([]Output, len(s.commands))

	g, gCtx := errgroup.WithContext(ctx)
	for i, argv := range s.commands {
		g.Go(func() error {
			line := util.ShellJoin(argv)
			stdout, stderr, code, err := client.Run(gCtx, line)
			if err != nil {
				return err
			}
			if notFound := exec.HandleExecError(argv, string(stderr), code, where); notFound != nil {
				return notFound
			}
			s.log.Debug("%s %s: exit %d, %d bytes", where, line, code, len(stdout))
			parts[i] = Output{Text: string(stdout), Stderr: string(stderr), ExitCode: code}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A cancelled poll leaves the connection usable; anything else may not.
		if ctx.Err() == nil {
			s.reset()
		}
		return Output{ExitCode: -1}, err
	}
	return combine(parts), nil
}

// Close drops the cached connection.
func (s *SSHSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *SSHSource) connect(ctx context.Context) (sshutil.Runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	s.log.Info("connecting to %s", s.host)
	client, err := s.dial(ctx, s.host, s.timeout)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *SSHSource) reset() {
	if err := s.Close(); err != nil {
		s.log.Debug("closing connection to %s: %v", s.host, err)
	}
}
