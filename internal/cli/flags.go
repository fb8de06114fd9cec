package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/spf13/cobra"
)

// SourceFlags holds the flags that override config values. They are shared by
// the dashboard and `sgpu snapshot`.
type SourceFlags struct {
	Config   string
	Interval string
	Timeout  string
	SSHHost  string
	Replay   string
	LogFile  string
	NoColor  bool
}

// AddSourceFlags registers the override flags as persistent flags on cmd.
func AddSourceFlags(cmd *cobra.Command, flags *SourceFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.Config, "config", "", "config file (default ./.sgpu.yaml, then ~/.config/sgpu/config.yaml)")
	pf.StringVar(&flags.Timeout, "timeout", "", "timeout for one poll (e.g., 10s)")
	pf.StringVar(&flags.SSHHost, "ssh", "", "run the status commands on this login node")
	pf.StringVar(&flags.Replay, "replay", "", "read captured scontrol output from a file")
	pf.StringVar(&flags.LogFile, "log-file", "", "write logs to this file")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colors")
}

// ValidateSourceFlags checks that --ssh and --replay are not used together.
func ValidateSourceFlags(flags SourceFlags) error {
	if flags.SSHHost != "" && flags.Replay != "" {
		return errors.New(errors.ErrConfig,
			"--ssh and --replay cannot be used together",
			"Use --ssh to poll a login node, or --replay to read a capture, but not both.")
	}
	return nil
}

// ParseDurationFlag parses a duration flag value. Returns zero duration if
// the flag is empty.
func ParseDurationFlag(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid duration for --%s", value, name),
			"Try something like 5s, 2m, or 500ms.")
	}
	return d, nil
}

// ApplySourceFlags overrides cfg with the flags that were set. A source flag
// replaces the configured source entirely, so --ssh drops a configured
// replay file and --replay drops a configured SSH host.
func ApplySourceFlags(cfg *config.Config, flags SourceFlags) error {
	if err := ValidateSourceFlags(flags); err != nil {
		return err
	}

	interval, err := ParseDurationFlag("interval", flags.Interval)
	if err != nil {
		return err
	}
	if interval != 0 {
		cfg.Interval = interval
	}

	timeout, err := ParseDurationFlag("timeout", flags.Timeout)
	if err != nil {
		return err
	}
	if timeout != 0 {
		cfg.Timeout = timeout
	}

	switch {
	case flags.Replay != "":
		cfg.Source.ReplayFile = config.ExpandPath(flags.Replay)
		cfg.Source.SSHHost = ""
	case flags.SSHHost != "":
		cfg.Source.SSHHost = flags.SSHHost
		cfg.Source.ReplayFile = ""
	}

	if flags.LogFile != "" {
		cfg.LogFile = config.ExpandPath(flags.LogFile)
	}
	return nil
}

// loadConfig loads the config file, applies flag overrides, and validates
// the result. It returns the path of the file used, "" for defaults.
func loadConfig(flags SourceFlags) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(flags.Config)
	if err != nil {
		return nil, "", err
	}

	if err := ApplySourceFlags(cfg, flags); err != nil {
		return nil, "", err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
