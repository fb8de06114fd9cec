package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

const (
	// MinInterval is the shortest refresh interval sgpu accepts.
	MinInterval = time.Second

	// DefaultInterval is how often the dashboard re-runs the status commands.
	DefaultInterval = 5 * time.Second

	// DefaultTimeout bounds a single poll.
	DefaultTimeout = 10 * time.Second

	// DefaultGres is the generic resource name counted as GPUs.
	DefaultGres = "gpu"
)

// Panel names accepted by display.panel.
const (
	PanelNodes      = "nodes"
	PanelJobs       = "jobs"
	PanelPartitions = "partitions"
)

// Config represents the complete .sgpu.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Interval between polls. Must be at least MinInterval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Timeout for one poll, covering every configured command.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Gres is the generic resource name counted as GPUs ("gpu" on most clusters).
	Gres string `yaml:"gres" mapstructure:"gres"`

	// LogFile receives dashboard logs. Empty disables logging while the TUI runs.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Display DisplayConfig `yaml:"display" mapstructure:"display"`
}

// SourceConfig controls where the raw scontrol output comes from.
type SourceConfig struct {
	// SSHHost runs the commands on a login node. Accepts an ~/.ssh/config alias,
	// hostname, or user@host[:port].
	SSHHost string `yaml:"ssh_host" mapstructure:"ssh_host"`

	// ReplayFile reads captured output from disk instead of running commands.
	ReplayFile string `yaml:"replay_file" mapstructure:"replay_file"`

	// Commands are run on every poll; their outputs are concatenated.
	Commands [][]string `yaml:"commands" mapstructure:"commands"`
}

// DisplayConfig holds the initial view state of the dashboard.
type DisplayConfig struct {
	// Panel shown at startup: nodes, jobs or partitions.
	Panel string `yaml:"panel" mapstructure:"panel"`

	// FreeOnly hides nodes without a free GPU.
	FreeOnly bool `yaml:"free_only" mapstructure:"free_only"`

	// GroupByPartition groups the node table under partition headers.
	GroupByPartition bool `yaml:"group_by_partition" mapstructure:"group_by_partition"`
}

// DefaultCommands returns the status commands run when none are configured.
func DefaultCommands() [][]string {
	return [][]string{
		{"scontrol", "show", "nodes"},
		{"scontrol", "show", "partitions"},
		{"scontrol", "show", "jobs"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
		Gres:     DefaultGres,
		Source: SourceConfig{
			Commands: DefaultCommands(),
		},
		Display: DisplayConfig{
			Panel: PanelNodes,
		},
	}
}
