package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/sgpu/internal/cluster/parsers"
	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/monitor"
	"github.com/rileyhilliard/sgpu/internal/poll"
	"github.com/rileyhilliard/sgpu/internal/source"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// dashboardCommand starts the TUI dashboard.
func dashboardCommand(ctx context.Context, flags SourceFlags) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrTerminal,
			"sgpu needs an interactive terminal",
			"Run it from a terminal, or use 'sgpu snapshot' for one-off output.")
	}

	cfg, path, err := loadConfig(flags)
	if err != nil {
		return err
	}

	log, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	if path != "" {
		log.Info("loaded config from %s", path)
	}

	src := source.New(cfg, log)
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	return runDashboard(ctx, cfg, src, log, tea.WithAltScreen())
}

// openLog returns the dashboard logger. The TUI owns stdout and stderr, so
// logs go to cfg's log file or nowhere.
func openLog(path string) (logger.Logger, func(), error) {
	if path == "" {
		return logger.Noop(), func() {}, nil
	}

	fl, err := logger.NewFileLogger(path, os.Getenv(logger.DebugEnv) != "")
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't open log file "+path,
			"Check the directory exists and is writable, or unset log_file")
	}
	return fl, func() { _ = fl.Close() }, nil
}

// runDashboard runs the poll loop and the bubbletea program until the user
// quits or ctx ends. Quitting cancels the poll loop and waits for it, so no
// poll is started after the program returns.
func runDashboard(ctx context.Context, cfg *config.Config, src source.Source, log logger.Logger, opts ...tea.ProgramOption) error {
	store := poll.NewStore()
	poller := poll.New(src, store, poll.Options{
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
		Decode:   parsers.Options{Gres: cfg.Gres},
	}, log)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(pollCtx)
	g.Go(func() error {
		return poller.Run(gctx)
	})

	model := monitor.NewModel(gctx, monitor.Options{
		Store:    store,
		Refresh:  poller.Refresh,
		Cancel:   cancel,
		Interval: cfg.Interval,
		Source:   src.Describe(),
		Display:  cfg.Display,
	})

	// The program watches the caller's context rather than pollCtx so that
	// quitting from the keyboard is a normal exit.
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, runErr := tea.NewProgram(model, opts...).Run()

	cancel()
	if err := g.Wait(); err != nil {
		log.Error("poll loop: %v", err)
	}

	if runErr != nil {
		if stderrors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
			log.Info("interrupted")
			return nil
		}
		return errors.WrapWithCode(runErr, errors.ErrTerminal,
			"The dashboard stopped unexpectedly",
			"Check the terminal supports full-screen programs, or try 'sgpu snapshot'.")
	}
	log.Info("dashboard closed")
	return nil
}
