package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/agent"
	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/ui"
)

// agentCommand runs the metrics agent until ctx is cancelled.
func agentCommand(ctx context.Context, listen string, interval time.Duration, processLimit int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAgentFlags(cfg, listen, interval, processLimit)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	srv := agent.NewServer(agent.NewHostCollector(),
		agent.WithInterval(cfg.Agent.Interval),
		agent.WithProcessLimit(cfg.Agent.ProcessLimit))

	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	fmt.Fprintf(os.Stderr, "%s perfdash agent on %s %s\n",
		lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess),
		cfg.Agent.Listen,
		muted.Render(fmt.Sprintf("(every %s, Ctrl-C to stop)", cfg.Agent.Interval)))

	return srv.Run(ctx, cfg.Agent.Listen)
}

// applyAgentFlags overrides the agent config with flags that were set.
func applyAgentFlags(cfg *config.Config, listen string, interval time.Duration, processLimit int) {
	if listen != "" {
		cfg.Agent.Listen = listen
	}
	if interval != 0 {
		cfg.Agent.Interval = interval
	}
	if processLimit >= 0 {
		cfg.Agent.ProcessLimit = processLimit
	}
}
