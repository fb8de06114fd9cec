package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/ui"
	"github.com/spf13/cobra"
)

// sourceFlags are bound to the root command's persistent flags.
var sourceFlags SourceFlags

var rootCmd = &cobra.Command{
	Use:   "sgpu",
	Short: "Live GPU availability dashboard for Slurm clusters",
	Long: `sgpu shows which GPUs are free across a Slurm cluster.

It runs scontrol on an interval (locally, or on a login node over SSH),
parses the node, partition and job reports, and renders them as a
keyboard-driven terminal dashboard. When a poll fails the last good data
stays on screen, marked stale.

Examples:
  sgpu
  sgpu --ssh login1 --interval 10s
  sgpu --replay capture.txt
  sgpu snapshot --output json`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if sourceFlags.NoColor || os.Getenv("NO_COLOR") != "" {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd.Context(), sourceFlags)
	},
}

func init() {
	AddSourceFlags(rootCmd, &sourceFlags)
	rootCmd.Flags().StringVar(&sourceFlags.Interval, "interval", "", "refresh interval (e.g., 5s, 1m)")
}

// Execute runs the root command and exits with its status. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err and returns the process exit code for it.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	var sgErr *errors.Error
	if stderrors.As(err, &sgErr) {
		fmt.Fprint(w, sgErr.Error())
		return 1
	}

	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, err)
	if isUsageError(err) {
		fmt.Fprintln(w, "\n  Run 'sgpu --help' for usage.")
	}
	return 1
}

// isUsageError reports whether err came from cobra's argument or flag parsing.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts "} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return strings.Contains(msg, "flag needs an argument")
}
