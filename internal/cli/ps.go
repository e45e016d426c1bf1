package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/perfdash/perfdash/internal/agent"
	"github.com/perfdash/perfdash/internal/ui"
)

// psCommand prints the agent's process list.
func psCommand(ctx context.Context, out io.Writer, limit int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	procs, err := agent.NewClient(cfg.APIURL, nil).Processes(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(procs)
	}

	fmt.Fprintln(out, ui.RenderProcessTable(procs, cfg.Thresholds.CPU, cfg.Thresholds.Memory))
	return nil
}
