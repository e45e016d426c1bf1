package cli

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/perfdash/perfdash/internal/app"
	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/dashboard"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/kill"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/perfdash/perfdash/internal/prefs"
	"github.com/perfdash/perfdash/internal/routes"
	"github.com/perfdash/perfdash/internal/util"
)

// dashLogFile receives log output while the dashboard owns the terminal.
const dashLogFile = "perfdash.log"

// dashCommand opens the dashboard against the configured agent.
func dashCommand(ctx context.Context, ephemeral bool, route string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	start, err := parseRoute(route)
	if err != nil {
		return err
	}

	logDir := cfg.StateDir
	if ephemeral {
		logDir = os.TempDir()
	}
	closer, err := logger.RedirectToFile(logDir, dashLogFile)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStorage,
			"Couldn't open the dashboard log in "+logDir,
			"Check that state_dir is writable, or use --ephemeral")
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model, feed, err := buildDashboard(ctx, cfg, openPrefs(cfg, ephemeral), start)
	if err != nil {
		return err
	}
	go func() {
		_ = feed.Run(ctx)
	}()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && (!stderrors.Is(err, tea.ErrProgramKilled) || stderrors.Is(err, tea.ErrProgramPanic)) {
		return errors.Wrap(err, "Dashboard exited unexpectedly")
	}
	return nil
}

// buildDashboard wires the feed, kill action and app state into a model.
// The feed is returned unstarted.
func buildDashboard(ctx context.Context, cfg *config.Config, store prefs.Storage, route routes.Path) (dashboard.Model, *metrics.Feed, error) {
	feed, err := metrics.NewFeed(cfg.APIURL, metrics.WithLogger(logger.NewEnvLogger("[feed]")))
	if err != nil {
		return dashboard.Model{}, nil, err
	}

	killer := kill.New(cfg.APIURL, feed,
		kill.WithTimeout(cfg.KillTimeout),
		kill.WithLogger(logger.NewEnvLogger("[kill]")))

	theme := prefs.LoadDarkMode(store, logger.NewEnvLogger("[prefs]"))
	state := app.New(theme, feed, killer,
		app.WithThresholds(app.Thresholds{CPU: cfg.Thresholds.CPU, Memory: cfg.Thresholds.Memory}))

	model := dashboard.NewModel(state, feed,
		dashboard.WithAPIURL(cfg.APIURL),
		dashboard.WithContext(ctx),
		dashboard.WithInitialRoute(route))
	return model, feed, nil
}

// parseRoute accepts "/processes" or "processes" and rejects unknown pages.
func parseRoute(s string) (routes.Path, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return routes.Root, nil
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}

	table := routes.DefaultTable()
	if !table.Has(routes.Path(s)) {
		var known []string
		for _, r := range table.Routes() {
			known = append(known, string(r.Path))
		}
		return "", errors.New(errors.ErrConfig,
			"Unknown page "+s,
			"Pick one of: "+util.JoinOrNone(known))
	}
	return routes.Path(s), nil
}
