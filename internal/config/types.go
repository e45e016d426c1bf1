package config

import "time"

const (
	// DefaultAPIURL is where the dashboard expects the agent.
	DefaultAPIURL = "http://localhost:3000"
	// DefaultCPUThreshold is the CPU percentage at which a process row is flagged.
	DefaultCPUThreshold = 80.0
	// DefaultMemoryThreshold is the memory percentage at which a process row is flagged.
	DefaultMemoryThreshold = 90.0
)

// Config represents the complete perfdash configuration file.
type Config struct {
	// APIURL is the base URL of the agent (kill endpoint and live feed).
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// StateDir holds persisted preferences and the dashboard log.
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`

	// KillTimeout bounds a kill request. Zero means no timeout.
	KillTimeout time.Duration `yaml:"kill_timeout" mapstructure:"kill_timeout"`

	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Agent      AgentConfig      `yaml:"agent" mapstructure:"agent"`
}

// ThresholdsConfig holds the per-process highlight thresholds, in percent.
type ThresholdsConfig struct {
	CPU    float64 `yaml:"cpu" mapstructure:"cpu"`
	Memory float64 `yaml:"memory" mapstructure:"memory"`
}

// AgentConfig controls the metrics agent started with 'perfdash agent'.
type AgentConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// Interval between metrics frames pushed to feed clients.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// ProcessLimit caps the number of processes in a process list, highest CPU first.
	ProcessLimit int `yaml:"process_limit" mapstructure:"process_limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIURL:      DefaultAPIURL,
		StateDir:    ExpandTilde("~/" + GlobalConfigDir),
		KillTimeout: 0,
		Thresholds: ThresholdsConfig{
			CPU:    DefaultCPUThreshold,
			Memory: DefaultMemoryThreshold,
		},
		Agent: AgentConfig{
			Listen:       ":3000",
			Interval:     2 * time.Second,
			ProcessLimit: 200,
		},
	}
}
