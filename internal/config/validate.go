package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/sgpu/internal/errors"
)

// ValidPanels lists the accepted values for display.panel.
var ValidPanels = []string{PanelNodes, PanelJobs, PanelPartitions}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but sgpu only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade sgpu, or lower the version field")
	}

	if cfg.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval %s is too short", cfg.Interval),
			fmt.Sprintf("Use an interval of at least %s, e.g. 'interval: 5s'", MinInterval))
	}

	if cfg.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Poll timeout must be positive, got %s", cfg.Timeout),
			"Set 'timeout' to a duration like 10s")
	}

	if err := validateGres(cfg.Gres); err != nil {
		return err
	}

	if err := validateSource(cfg.Source); err != nil {
		return err
	}

	return validateDisplay(cfg.Display)
}

func validateGres(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrConfig,
			"'gres' can't be empty",
			"Set it to the GRES name your cluster uses for GPUs, usually 'gpu'")
	}
	if strings.ContainsAny(name, ":=,() \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'gres' should be a bare resource name, got %q", name),
			"Use just the name, e.g. 'gpu' rather than 'gpu:a100'")
	}
	return nil
}

func validateSource(src SourceConfig) error {
	if src.ReplayFile != "" {
		if src.SSHHost != "" {
			return errors.New(errors.ErrConfig,
				"'source.replay_file' and 'source.ssh_host' can't both be set",
				"Replay reads a local file; remove one of them")
		}
		return nil
	}

	if len(src.Commands) == 0 {
		return errors.New(errors.ErrConfig,
			"No status commands configured",
			"Add at least one command under 'source.commands', e.g. [scontrol, show, nodes]")
	}

	for i, cmd := range src.Commands {
		if len(cmd) == 0 || strings.TrimSpace(cmd[0]) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("source.commands[%d] is empty", i),
				"Each command needs a program name, e.g. [scontrol, show, jobs]")
		}
	}
	return nil
}

func validateDisplay(d DisplayConfig) error {
	for _, p := range ValidPanels {
		if d.Panel == p {
			return nil
		}
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown panel %q", d.Panel),
		fmt.Sprintf("Use one of: %s", strings.Join(ValidPanels, ", ")))
}
