package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/ui"
	"github.com/rileyhilliard/sgpu/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	initForce          bool
	initGlobal         bool
	initNonInteractive bool
	initGres           string
	initInterval       time.Duration
)

// initCmd writes a new .sgpu.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an sgpu config file",
	Long: `Create a config file with sensible defaults.

Writes .sgpu.yaml in the current directory, or ~/.config/sgpu/config.yaml
with --global. Interactive runs ask where scontrol should run, offering
the hosts from ~/.ssh/config.

Examples:
  sgpu init
  sgpu init --global --ssh login1
  sgpu init --non-interactive --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			SSHHost:        sourceFlags.SSHHost,
			Gres:           initGres,
			Interval:       initInterval,
			Global:         initGlobal,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive || !term.IsTerminal(int(os.Stdin.Fd())),
			Out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write ~/.config/sgpu/config.yaml instead of ./.sgpu.yaml")
	initCmd.Flags().BoolVarP(&initNonInteractive, "non-interactive", "y", false, "skip prompts and use flags and defaults")
	initCmd.Flags().StringVar(&initGres, "gres", "", "GRES name counted as GPUs (default gpu)")
	initCmd.Flags().DurationVar(&initInterval, "interval", 0, "refresh interval to write (default 5s)")
	rootCmd.AddCommand(initCmd)
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // Explicit target; overrides Global
	Global         bool   // Write the global config instead of ./.sgpu.yaml
	SSHHost        string // Login node; empty runs scontrol locally
	Gres           string // GRES name; empty keeps the default
	Interval       time.Duration
	Overwrite      bool // Overwrite existing config without asking
	NonInteractive bool // Skip prompts, use options and defaults
	Out            io.Writer
}

// Init creates a new config file.
func Init(opts InitOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	path, err := initPath(opts)
	if err != nil {
		return err
	}

	proceed, err := checkExistingConfig(path, opts)
	if err != nil || !proceed {
		return err
	}

	if !opts.NonInteractive {
		if err := promptInitValues(&opts); err != nil {
			return err
		}
	}

	cfg := buildInitConfig(opts)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := config.Save(path, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}

	fmt.Fprintln(opts.Out, ui.Success("Created "+path))
	fmt.Fprintln(opts.Out)
	fmt.Fprintln(opts.Out, "Next steps:")
	fmt.Fprintln(opts.Out, "  sgpu           - Open the dashboard")
	fmt.Fprintln(opts.Out, "  sgpu snapshot  - Poll once and print the result")
	return nil
}

// initPath resolves where Init writes.
func initPath(opts InitOptions) (string, error) {
	switch {
	case opts.Path != "":
		return opts.Path, nil
	case opts.Global:
		path := config.GlobalConfigPath()
		if path == "" {
			return "", errors.New(errors.ErrConfig,
				"Can't find your home directory for the global config",
				"Set $HOME, or run 'sgpu init' without --global")
		}
		return path, nil
	default:
		return filepath.Join(".", config.ConfigFileName), nil
	}
}

// checkExistingConfig reports whether Init may write path, asking before an
// overwrite when interactive.
func checkExistingConfig(path string, opts InitOptions) (bool, error) {
	if _, err := os.Stat(path); err != nil || opts.Overwrite {
		return true, nil
	}

	if opts.NonInteractive {
		return false, errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite")
	}

	var overwrite bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
				Value(&overwrite),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}

	if !overwrite {
		fmt.Fprintln(opts.Out, "Cancelled.")
	}
	return overwrite, nil
}

// manualHost is the select value that switches to a free-form host input.
const manualHost = "\x00manual"

// promptInitValues asks for the source, interval and GRES name, starting
// from whatever opts already holds.
func promptInitValues(opts *InitOptions) error {
	hosts, err := sshutil.ListHosts()
	if err != nil {
		// A broken ssh config only costs the suggestions.
		hosts = nil
	}

	choice := opts.SSHHost
	options := hostOptions(hosts)
	if choice != "" && !hasOption(options, choice) {
		choice = manualHost
	}
	manual := opts.SSHHost

	interval := config.DefaultInterval.String()
	if opts.Interval != 0 {
		interval = opts.Interval.String()
	}
	gres := opts.Gres
	if gres == "" {
		gres = config.DefaultGres
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should scontrol run?").
				Options(options...).
				Value(&choice),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Login node").
				Description("Hostname, user@host[:port], or ~/.ssh/config alias").
				Placeholder("login1.hpc.example.org").
				Value(&manual).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("login node is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return choice != manualHost }),
		huh.NewGroup(
			huh.NewInput().
				Title("Refresh interval").
				Placeholder(config.DefaultInterval.String()).
				Value(&interval).
				Validate(validateIntervalInput),
			huh.NewInput().
				Title("GPU GRES name").
				Description("The generic resource counted as GPUs").
				Placeholder(config.DefaultGres).
				Value(&gres),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}

	switch choice {
	case manualHost:
		opts.SSHHost = strings.TrimSpace(manual)
	default:
		opts.SSHHost = choice
	}
	opts.Interval, _ = time.ParseDuration(strings.TrimSpace(interval))
	opts.Gres = strings.TrimSpace(gres)
	return nil
}

// hostOptions lists "local", every ssh config alias, and manual entry.
func hostOptions(hosts []sshutil.HostEntry) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("This machine (scontrol is on PATH)", "")}
	for _, h := range hosts {
		label := h.Alias
		if desc := h.Description(); desc != h.Alias {
			label += ui.Muted("  " + desc)
		}
		options = append(options, huh.NewOption(label, h.Alias))
	}
	return append(options, huh.NewOption("Another host...", manualHost))
}

func hasOption(options []huh.Option[string], value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func validateIntervalInput(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use a duration like 5s or 1m")
	}
	if d < config.MinInterval {
		return fmt.Errorf("must be at least %s", config.MinInterval)
	}
	return nil
}

// buildInitConfig applies opts to the default config.
func buildInitConfig(opts InitOptions) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.SSHHost = opts.SSHHost
	if opts.Interval != 0 {
		cfg.Interval = opts.Interval
	}
	if opts.Gres != "" {
		cfg.Gres = opts.Gres
	}
	return cfg
}
