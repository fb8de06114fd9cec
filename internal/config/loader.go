package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".sgpu.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/sgpu"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. SGPU_INTERVAL=10s.
	EnvPrefix = "SGPU"
)

// Load reads config from the specified path, layered over defaults and
// SGPU_* environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'sgpu init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .sgpu.yaml in current directory
// 3. ~/.config/sgpu/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if global := GlobalConfigPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/sgpu/config.yaml, or "" when the home
// directory is unknown.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault finds and loads config, falling back to defaults (plus
// environment overrides) when no file exists. It returns the path it used.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	// mapstructure decodes into an existing slice in place, so a shorter
	// configured list would keep trailing defaults.
	cfg.Source.Commands = nil

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			fmt.Sprintf("Check the values in %s", where))
	}

	cfg.LogFile = ExpandPath(cfg.LogFile)
	cfg.Source.ReplayFile = ExpandPath(cfg.Source.ReplayFile)

	return cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can override
// values that never appear in a config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("interval", d.Interval.String())
	v.SetDefault("timeout", d.Timeout.String())
	v.SetDefault("gres", d.Gres)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("source.ssh_host", d.Source.SSHHost)
	v.SetDefault("source.replay_file", d.Source.ReplayFile)
	v.SetDefault("source.commands", d.Source.Commands)
	v.SetDefault("display.panel", d.Display.Panel)
	v.SetDefault("display.free_only", d.Display.FreeOnly)
	v.SetDefault("display.group_by_partition", d.Display.GroupByPartition)
}
