package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/perfdash/perfdash/internal/errors"
)

// MinAgentInterval keeps the agent from hammering /proc.
const MinAgentInterval = 500 * time.Millisecond

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if err := validateAPIURL(cfg.APIURL); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Set api_url to something like http://localhost:3000.")
	}

	if err := validateThreshold("cpu", cfg.Thresholds.CPU); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'thresholds' section in your config.")
	}
	if err := validateThreshold("memory", cfg.Thresholds.Memory); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'thresholds' section in your config.")
	}

	if cfg.KillTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"kill_timeout can't be negative",
			"Use 0 for no timeout, or a duration like 5s.")
	}

	if err := validateAgent(cfg.Agent); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'agent' section in your config.")
	}

	return nil
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("api_url '%s' isn't a valid URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url '%s' must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api_url '%s' is missing a host", raw)
	}
	return nil
}

func validateThreshold(name string, value float64) error {
	if value <= 0 || value > 100 {
		return fmt.Errorf("thresholds.%s must be between 0 and 100 (got %g)", name, value)
	}
	return nil
}

func validateAgent(agent AgentConfig) error {
	if agent.Listen == "" {
		return fmt.Errorf("agent.listen can't be empty")
	}
	if agent.Interval < MinAgentInterval {
		return fmt.Errorf("agent.interval %s is too short - minimum is %s", agent.Interval, MinAgentInterval)
	}
	if agent.ProcessLimit < 0 {
		return fmt.Errorf("agent.process_limit can't be negative")
	}
	return nil
}
