package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/prefs"
)

// NewConfigChecks returns the checks for the config file at cfgPath (or the
// default location when empty) and the state it points at.
func NewConfigChecks(cfgPath string, cfg *config.Config) []Check {
	checks := []Check{
		&ConfigFileCheck{ConfigPath: cfgPath},
		&ConfigSchemaCheck{ConfigPath: cfgPath},
	}
	if cfg != nil {
		checks = append(checks,
			&StateDirCheck{Dir: cfg.StateDir},
			&PrefsCheck{Path: filepath.Join(cfg.StateDir, prefs.DefaultFileName)},
		)
	}
	return checks
}

// ConfigFileCheck reports which config file is in use. Running on defaults is
// a warning, not a failure.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(_ context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Error finding config: %s", headline(err)),
			Suggestion: "Fix the --config path or drop it to use ~/" + config.GlobalConfigDir + "/" + config.GlobalConfigFile,
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file, using defaults",
			Suggestion: "Create ~/" + config.GlobalConfigDir + "/" + config.GlobalConfigFile + " to change them",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

func (c *ConfigFileCheck) Fix() error {
	return nil
}

// ConfigSchemaCheck verifies the effective config loads and validates.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(_ context.Context) CheckResult {
	cfg, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Schema error: %s", headline(err)),
			Suggestion: "Fix the config, then check it with 'perfdash config show'",
		}
	}

	return CheckResult{
		Name:   c.Name(),
		Status: StatusPass,
		Message: fmt.Sprintf("Schema valid (thresholds: CPU %g%%, memory %g%%)",
			cfg.Thresholds.CPU, cfg.Thresholds.Memory),
	}
}

func (c *ConfigSchemaCheck) Fix() error {
	return nil // Schema issues require manual intervention
}

// StateDirCheck verifies the state directory exists and is writable.
type StateDirCheck struct {
	Dir string
}

func (c *StateDirCheck) Name() string     { return "state_dir" }
func (c *StateDirCheck) Category() string { return CategoryState }

func (c *StateDirCheck) Run(_ context.Context) CheckResult {
	info, err := os.Stat(c.Dir)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "State directory doesn't exist yet: " + c.Dir,
			Suggestion: "It is created on first save, or run with --fix",
			Fixable:    true,
		}
	}
	if err != nil || !info.IsDir() {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "State directory is unusable: " + c.Dir,
			Suggestion: "Point state_dir at a writable directory",
		}
	}

	probe, err := os.CreateTemp(c.Dir, ".perfdash-probe-*")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "State directory isn't writable: " + c.Dir,
			Suggestion: "Fix its permissions or point state_dir elsewhere",
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "State directory: " + c.Dir,
	}
}

func (c *StateDirCheck) Fix() error {
	return os.MkdirAll(c.Dir, 0o755)
}

// PrefsCheck verifies the preferences file is readable and its dark mode
// value is a JSON boolean.
type PrefsCheck struct {
	Path string
}

func (c *PrefsCheck) Name() string     { return "prefs" }
func (c *PrefsCheck) Category() string { return CategoryState }

func (c *PrefsCheck) Run(_ context.Context) CheckResult {
	store := prefs.NewFileStorage(c.Path)
	raw, ok, err := store.GetItem(prefs.DarkModeKey)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Preferences unreadable: " + headline(err),
			Suggestion: "Run with --fix to move it aside and start fresh",
			Fixable:    true,
		}
	}
	if !ok {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No saved theme, dark mode defaults to on",
		}
	}

	dark, err := prefs.ParseDarkMode(raw)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Saved %s value %q isn't a boolean, dark mode falls back to on", prefs.DarkModeKey, raw),
			Suggestion: "Run with --fix to clear it",
			Fixable:    true,
		}
	}

	state := "off"
	if dark {
		state = "on"
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Dark mode " + state,
	}
}

// Fix clears a malformed value, or moves an unreadable file to .bak.
func (c *PrefsCheck) Fix() error {
	store := prefs.NewFileStorage(c.Path)
	if _, _, err := store.GetItem(prefs.DarkModeKey); err != nil {
		return os.Rename(c.Path, c.Path+".bak")
	}
	return store.RemoveItem(prefs.DarkModeKey)
}
