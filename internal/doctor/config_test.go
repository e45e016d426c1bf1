package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/prefs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigFileCheck(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	t.Run("explicit path missing", func(t *testing.T) {
		check := &ConfigFileCheck{ConfigPath: filepath.Join(tmpDir, "nonexistent.yaml")}
		result := check.Run(ctx)

		if result.Status != StatusFail {
			t.Errorf("expected StatusFail, got %v", result.Status)
		}
	})

	t.Run("config found", func(t *testing.T) {
		cfgPath := filepath.Join(tmpDir, "config.yaml")
		writeFile(t, cfgPath, "api_url: http://localhost:3000\n")

		result := (&ConfigFileCheck{ConfigPath: cfgPath}).Run(ctx)

		if result.Status != StatusPass {
			t.Errorf("expected StatusPass, got %v: %s", result.Status, result.Message)
		}
		if !strings.Contains(result.Message, cfgPath) {
			t.Errorf("message should name the file: %s", result.Message)
		}
	})

	t.Run("name and category", func(t *testing.T) {
		check := &ConfigFileCheck{}
		if check.Name() != "config_file" {
			t.Errorf("expected name 'config_file', got %s", check.Name())
		}
		if check.Category() != CategoryConfig {
			t.Errorf("expected category %q, got %s", CategoryConfig, check.Category())
		}
	})
}

func TestConfigSchemaCheck(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	t.Run("valid schema", func(t *testing.T) {
		cfgPath := filepath.Join(tmpDir, "valid.yaml")
		writeFile(t, cfgPath, "thresholds:\n  cpu: 70\n")

		result := (&ConfigSchemaCheck{ConfigPath: cfgPath}).Run(ctx)
		if result.Status != StatusPass {
			t.Errorf("expected StatusPass, got %v: %s", result.Status, result.Message)
		}
		if !strings.Contains(result.Message, "CPU 70%") {
			t.Errorf("message should show thresholds: %s", result.Message)
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfgPath := filepath.Join(tmpDir, "invalid.yaml")
		writeFile(t, cfgPath, "thresholds:\n  memory: 150\n")

		result := (&ConfigSchemaCheck{ConfigPath: cfgPath}).Run(ctx)
		if result.Status != StatusFail {
			t.Errorf("expected StatusFail, got %v", result.Status)
		}
		if strings.Contains(result.Message, "✗") {
			t.Errorf("message should be a single clean line: %q", result.Message)
		}
	})
}

func TestStateDirCheck(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	check := &StateDirCheck{Dir: dir}

	result := check.Run(ctx)
	if result.Status != StatusWarn || !result.Fixable {
		t.Fatalf("missing dir: got %v fixable=%v", result.Status, result.Fixable)
	}

	if err := check.Fix(); err != nil {
		t.Fatal(err)
	}
	if result := check.Run(ctx); result.Status != StatusPass {
		t.Errorf("after fix: got %v: %s", result.Status, result.Message)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("write probe left files behind: %v", entries)
	}
}

func TestStateDirCheck_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x")

	if result := (&StateDirCheck{Dir: file}).Run(context.Background()); result.Status != StatusFail {
		t.Errorf("expected StatusFail, got %v", result.Status)
	}
}

func TestPrefsCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("no file", func(t *testing.T) {
		result := (&PrefsCheck{Path: filepath.Join(t.TempDir(), prefs.DefaultFileName)}).Run(ctx)
		if result.Status != StatusPass {
			t.Errorf("expected StatusPass, got %v", result.Status)
		}
	})

	t.Run("saved value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), prefs.DefaultFileName)
		if err := prefs.NewFileStorage(path).SetItem(prefs.DarkModeKey, "false"); err != nil {
			t.Fatal(err)
		}

		result := (&PrefsCheck{Path: path}).Run(ctx)
		if result.Status != StatusPass || result.Message != "Dark mode off" {
			t.Errorf("got %v %q", result.Status, result.Message)
		}
	})

	t.Run("malformed value is cleared by fix", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), prefs.DefaultFileName)
		store := prefs.NewFileStorage(path)
		if err := store.SetItem(prefs.DarkModeKey, "maybe"); err != nil {
			t.Fatal(err)
		}
		if err := store.SetItem("other", "1"); err != nil {
			t.Fatal(err)
		}

		check := &PrefsCheck{Path: path}
		if result := check.Run(ctx); result.Status != StatusWarn || !result.Fixable {
			t.Fatalf("got %v fixable=%v", result.Status, result.Fixable)
		}
		if err := check.Fix(); err != nil {
			t.Fatal(err)
		}
		if result := check.Run(ctx); result.Status != StatusPass {
			t.Errorf("after fix: %v", result.Status)
		}
		if _, ok, _ := store.GetItem("other"); !ok {
			t.Errorf("fix removed unrelated keys")
		}
	})

	t.Run("null value warns", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), prefs.DefaultFileName)
		if err := prefs.NewFileStorage(path).SetItem(prefs.DarkModeKey, "null"); err != nil {
			t.Fatal(err)
		}

		result := (&PrefsCheck{Path: path}).Run(ctx)
		if result.Status != StatusWarn || !result.Fixable {
			t.Errorf("got %v fixable=%v: %q", result.Status, result.Fixable, result.Message)
		}
	})

	t.Run("corrupt file is moved aside by fix", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), prefs.DefaultFileName)
		writeFile(t, path, "{not json")

		check := &PrefsCheck{Path: path}
		if result := check.Run(ctx); result.Status != StatusFail || !result.Fixable {
			t.Fatalf("got %v fixable=%v", result.Status, result.Fixable)
		}
		if err := check.Fix(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path + ".bak"); err != nil {
			t.Errorf("backup missing: %v", err)
		}
		if result := check.Run(ctx); result.Status != StatusPass {
			t.Errorf("after fix: %v", result.Status)
		}
	})
}

func TestNewConfigChecks(t *testing.T) {
	if got := len(NewConfigChecks("", nil)); got != 2 {
		t.Errorf("without config: %d checks, want 2", got)
	}

	cfg := config.DefaultConfig()
	cfg.StateDir = t.TempDir()
	checks := NewConfigChecks("", cfg)
	if len(checks) != 4 {
		t.Fatalf("with config: %d checks, want 4", len(checks))
	}
	prefsCheck, ok := checks[3].(*PrefsCheck)
	if !ok || prefsCheck.Path != filepath.Join(cfg.StateDir, prefs.DefaultFileName) {
		t.Errorf("unexpected prefs check: %#v", checks[3])
	}
}
