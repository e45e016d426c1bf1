package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/perfdash/perfdash/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for global config and state, relative to home.
	GlobalConfigDir = ".config/perfdash"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. PERFDASH_API_URL.
	EnvPrefix = "PERFDASH"
)

// Load reads config from the specified path, layered over defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Check the path passed to --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. ~/.config/perfdash/config.yaml
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

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", nil
	}
	globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(globalConfig); err == nil {
		return globalConfig, nil
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults (with
// environment overrides applied) if no file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return parseConfig(newViper(), "environment")
	}

	return Load(path)
}

// newViper builds a viper instance with defaults and PERFDASH_* env bindings.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// parseConfig converts viper config to our Config struct and validates it.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.StateDir = ExpandTilde(cfg.StateDir)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("api_url", def.APIURL)
	v.SetDefault("state_dir", "~/"+GlobalConfigDir)
	v.SetDefault("kill_timeout", "0s")
	v.SetDefault("thresholds.cpu", def.Thresholds.CPU)
	v.SetDefault("thresholds.memory", def.Thresholds.Memory)
	v.SetDefault("agent.listen", def.Agent.Listen)
	v.SetDefault("agent.interval", "2s")
	v.SetDefault("agent.process_limit", def.Agent.ProcessLimit)
}
