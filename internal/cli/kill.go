package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/agent"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/kill"
	"github.com/perfdash/perfdash/internal/ui"
	"golang.org/x/term"
)

// confirmKill asks before a kill. Replaced in tests.
var confirmKill = promptKill

// killCommand terminates pid through the agent. The prompt is skipped with
// --yes or when stdin is not a terminal.
func killCommand(ctx context.Context, out io.Writer, arg string, yes bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pid, err := parsePID(arg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
		name := lookupProcessName(ctx, cfg.APIURL, pid)
		proceed, err := confirmKill(pid, name)
		if err != nil || !proceed {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	action := kill.New(cfg.APIURL, nil, kill.WithTimeout(cfg.KillTimeout))
	if err := action.Kill(ctx, pid); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Terminated pid %d\n",
		lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess), pid)
	return nil
}

// parsePID accepts a positive decimal pid that fits in 32 bits.
func parsePID(arg string) (int32, error) {
	n, err := strconv.ParseInt(arg, 10, 32)
	if err != nil || n <= 0 {
		return 0, errors.New(errors.ErrKill,
			fmt.Sprintf("'%s' isn't a valid pid", arg),
			"Pass a positive process id, e.g. perfdash kill 4242. 'perfdash ps' lists them.")
	}
	return int32(n), nil
}

// lookupProcessName asks the agent for pid's name. Empty when unknown.
func lookupProcessName(ctx context.Context, apiURL string, pid int32) string {
	procs, err := agent.NewClient(apiURL, nil).Processes(ctx)
	if err != nil {
		return ""
	}
	for _, p := range procs {
		if p.PID == pid {
			return p.Name
		}
	}
	return ""
}

func promptKill(pid int32, name string) (bool, error) {
	title := fmt.Sprintf("Terminate pid %d?", pid)
	if name != "" {
		title = fmt.Sprintf("Terminate %s (pid %d)?", name, pid)
	}

	var proceed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Terminate").
				Negative("Cancel").
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return proceed, nil
}
