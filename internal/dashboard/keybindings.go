package dashboard

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/perfdash/perfdash/internal/metrics"
)

// SortOrder defines how the process list is sorted.
type SortOrder int

const (
	SortByCPU SortOrder = iota
	SortByMemory
	SortByPID
	SortByName
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByCPU:
		return "CPU"
	case SortByMemory:
		return "memory"
	case SortByPID:
		return "pid"
	case SortByName:
		return "name"
	default:
		return "CPU"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 4)
}

// Sort orders procs in place. Usage sorts are descending; ties fall back to pid.
func (s SortOrder) Sort(procs []metrics.Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		a, b := procs[i], procs[j]
		switch s {
		case SortByMemory:
			if a.MemoryPercent != b.MemoryPercent {
				return a.MemoryPercent > b.MemoryPercent
			}
		case SortByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		case SortByPID:
		default:
			if a.CPUPercent != b.CPUPercent {
				return a.CPUPercent > b.CPUPercent
			}
		}
		return a.PID < b.PID
	})
}

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Overview  key.Binding
	Processes key.Binding
	Disk      key.Binding
	Settings  key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding

	Up     key.Binding
	Down   key.Binding
	Home   key.Binding
	End    key.Binding
	Select key.Binding

	Theme   key.Binding
	Refresh key.Binding
	Kill    key.Binding
	Sort    key.Binding

	Help key.Binding
	Back key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in binding set. Vim-style j/k alongside the
// arrow keys.
var DefaultKeyMap = KeyMap{
	Overview:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
	Processes: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "processes")),
	Disk:      key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "disk")),
	Settings:  key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "settings")),
	NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	PrevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "previous page")),

	Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Home:   key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	End:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "activate")),

	Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle theme")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh processes")),
	Kill:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "kill process")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),

	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp is shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Up, k.Down, k.Kill, k.Refresh, k.Theme, k.Help, k.Quit}
}

// FullHelp is shown in the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Overview, k.Processes, k.Disk, k.Settings, k.NextTab, k.PrevTab},
		{k.Up, k.Down, k.Home, k.End, k.Select},
		{k.Kill, k.Sort, k.Refresh, k.Theme},
		{k.Help, k.Back, k.Quit},
	}
}
