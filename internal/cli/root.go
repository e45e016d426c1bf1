package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/prefs"
	"github.com/perfdash/perfdash/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	apiFlag string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "perfdash",
	Short: "Terminal dashboard for host performance",
	Long: `perfdash shows live CPU, memory, disk and process metrics from a
perfdash agent and lets you terminate runaway processes.

Start an agent on the machine to watch, then open the dashboard:

  perfdash agent
  perfdash dash --api http://localhost:3000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/perfdash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "agent base URL (overrides api_url)")
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprint(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

// renderError formats err for the terminal. Structured errors already carry
// their own layout; anything else gets the same leading marker.
func renderError(err error) string {
	msg := err.Error()
	if !strings.HasPrefix(msg, ui.SymbolFail) {
		msg = ui.SymbolFail + " " + msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	first, rest, _ := strings.Cut(msg, "\n")
	return lipgloss.NewStyle().Foreground(ui.ColorError).Render(first) + "\n" + rest
}

// loadConfig loads the effective config and applies the --api override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiFlag != "" {
		cfg.APIURL = strings.TrimRight(apiFlag, "/")
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// prefsPath is where persisted preferences live for cfg.
func prefsPath(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, prefs.DefaultFileName)
}

// openPrefs returns the preference store. Ephemeral stores are discarded on exit.
func openPrefs(cfg *config.Config, ephemeral bool) prefs.Storage {
	if ephemeral {
		return prefs.NewMemoryStorage()
	}
	return prefs.NewFileStorage(prefsPath(cfg))
}
