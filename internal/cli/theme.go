package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/prefs"
	"github.com/perfdash/perfdash/internal/ui"
)

func themeShowCommand(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	theme := prefs.LoadDarkMode(openPrefs(cfg, false), logger.Default())
	printTheme(out, theme.Enabled(), prefsPath(cfg))
	return nil
}

func themeToggleCommand(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	theme := prefs.LoadDarkMode(openPrefs(cfg, false), logger.Noop())
	dark, err := theme.Toggle()
	if err != nil {
		return err
	}
	printTheme(out, dark, prefsPath(cfg))
	return nil
}

func printTheme(out io.Writer, dark bool, path string) {
	state := "off"
	if dark {
		state = "on"
	}
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	fmt.Fprintf(out, "Dark mode: %s %s\n", state, muted.Render("("+path+")"))
}
