package dashboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/app"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/perfdash/perfdash/internal/routes"
)

// Feed is the live data the dashboard renders besides the process list.
// *metrics.Feed satisfies it.
type Feed interface {
	Updates() <-chan metrics.Event
	Snapshot() (metrics.Snapshot, bool)
	Disks() []metrics.DiskUsage
}

var _ Feed = (*metrics.Feed)(nil)

// Settings page entries, in focus order.
type settingsItem int

const (
	settingTheme settingsItem = iota
	settingRefresh
	settingsCount
)

// Layout reserves, in lines.
const (
	headerHeight = 3
	footerHeight = 2
)

// Model is the Bubble Tea model for the dashboard shell.
type Model struct {
	state    *app.State
	feed     Feed
	observer *routes.Observer
	route    routes.Route
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	styles   Styles
	history  *History
	apiURL   string
	ctx      context.Context
	initial  routes.Path

	width         int
	height        int
	selected      int
	offset        int
	settingsFocus settingsItem
	sortOrder     SortOrder
	showHelp      bool
	quitting      bool

	killing    int32 // pid with a kill in flight, 0 when idle
	notice     string
	lastErr    string
	lastUpdate time.Time
}

// feedMsg carries one feed event into the event loop.
type feedMsg metrics.Event

// feedClosedMsg signals the feed's update channel was closed.
type feedClosedMsg struct{}

// killResultMsg reports a finished kill request.
type killResultMsg struct {
	pid  int32
	name string
	err  error
}

// Option configures a Model.
type Option func(*Model)

// WithAPIURL sets the agent URL shown in the header and settings.
func WithAPIURL(u string) Option {
	return func(m *Model) {
		m.apiURL = u
	}
}

// WithInitialRoute opens the dashboard on p instead of the overview.
func WithInitialRoute(p routes.Path) Option {
	return func(m *Model) {
		m.initial = p
	}
}

// WithContext bounds kill requests started from the dashboard.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap(k KeyMap) Option {
	return func(m *Model) {
		m.keys = k
	}
}

// NewModel creates the dashboard. The initial route is observed right away,
// so its on-enter effects run before the program starts.
func NewModel(state *app.State, feed Feed, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		state:   state,
		feed:    feed,
		keys:    DefaultKeyMap,
		help:    help.New(),
		spinner: sp,
		history: NewHistory(DefaultHistorySize),
		ctx:     context.Background(),
		initial: routes.Root,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.applyTheme(state.DarkMode())
	m.observer = routes.NewObserver(state.HandleRouteChange)
	m.navigate(m.initial)
	return m
}

// Init starts listening to the feed and the connection spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.spinner.Tick)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampSelection()

	case feedMsg:
		m.applyEvent(metrics.Event(msg))
		return m, m.waitForUpdate()

	case feedClosedMsg:
		return m, nil

	case killResultMsg:
		m.finishKill(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// HandleKeyMsg processes keyboard input. It reports whether the key was
// handled and returns any command to run.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	// Help toggle takes priority
	if key.Matches(msg, m.keys.Help) {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key.Matches(msg, m.keys.Back) {
		m.showHelp = false
		return true, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return true, tea.Quit
	}

	if r, ok := m.state.Routes.ByKey(msg.String()); ok {
		m.navigate(r.Path)
		return true, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.navigate(m.state.Routes.Next(m.route.Path))
	case key.Matches(msg, m.keys.PrevTab):
		m.navigate(m.state.Routes.Prev(m.route.Path))
	case key.Matches(msg, m.keys.Theme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.Refresh):
		m.refreshProcesses()
	case key.Matches(msg, m.keys.Sort):
		if m.route.Page == routes.PageProcesses {
			m.sortOrder = m.sortOrder.Next()
		}
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Home):
		m.move(-1 << 30)
	case key.Matches(msg, m.keys.End):
		m.move(1 << 30)
	case key.Matches(msg, m.keys.Select):
		m.activate()
	case key.Matches(msg, m.keys.Kill):
		if m.route.Page == routes.PageProcesses {
			return true, m.killSelected()
		}
	default:
		return false, nil
	}
	return true, nil
}

// navigate makes p the current route. Re-selecting the current route is a
// no-op, so its on-enter effects do not run again.
func (m *Model) navigate(p routes.Path) {
	p = m.state.Routes.Lookup(p).Path
	if !m.observer.Observe(p) {
		return
	}
	m.route = m.state.Routes.Lookup(p)
	m.selected = 0
	m.offset = 0
	m.settingsFocus = settingTheme
	m.notice = ""
}

func (m *Model) move(delta int) {
	switch m.route.Page {
	case routes.PageProcesses:
		m.selected += delta
		m.clampSelection()
	case routes.PageSettings:
		focus := int(m.settingsFocus) + delta
		if focus < 0 {
			focus = 0
		}
		if focus >= int(settingsCount) {
			focus = int(settingsCount) - 1
		}
		m.settingsFocus = settingsItem(focus)
	}
}

// activate presses the focused settings entry.
func (m *Model) activate() {
	if m.route.Page != routes.PageSettings {
		return
	}
	switch m.settingsFocus {
	case settingTheme:
		m.toggleTheme()
	case settingRefresh:
		m.refreshProcesses()
	}
}

func (m *Model) toggleTheme() {
	dark, err := m.state.ToggleDarkMode()
	if err != nil {
		m.lastErr = "Couldn't save theme: " + describe(err)
		return
	}
	m.applyTheme(dark)
	if dark {
		m.notice = "Dark mode on"
	} else {
		m.notice = "Dark mode off"
	}
}

func (m *Model) applyTheme(dark bool) {
	m.styles = NewStyles(dark)
	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(m.styles.Palette.TextSecondary).Bold(true)
	m.help.Styles.ShortDesc = m.styles.Muted
	m.help.Styles.ShortSeparator = m.styles.Muted
	m.spinner.Style = lipgloss.NewStyle().Foreground(m.styles.Palette.Warning)
}

func (m *Model) refreshProcesses() {
	m.state.RefreshProcesses()
	m.notice = "Requested a fresh process list"
}

// killSelected starts a kill for the selected process. Only one kill runs at
// a time.
func (m *Model) killSelected() tea.Cmd {
	if m.killing != 0 {
		return nil
	}
	p, ok := m.SelectedProcess()
	if !ok || !p.Killable() {
		return nil
	}

	m.killing = p.PID
	m.notice = fmt.Sprintf("Terminating %s (pid %d)...", p.Name, p.PID)
	m.lastErr = ""

	state, ctx := m.state, m.ctx
	pid, name := p.PID, p.Name
	return func() tea.Msg {
		return killResultMsg{pid: pid, name: name, err: state.KillProcess(ctx, pid)}
	}
}

func (m *Model) finishKill(msg killResultMsg) {
	m.killing = 0
	if msg.err != nil {
		m.notice = ""
		m.lastErr = fmt.Sprintf("Kill %d failed: %s", msg.pid, describe(msg.err))
		return
	}
	m.lastErr = ""
	m.notice = fmt.Sprintf("Terminated %s (pid %d)", msg.name, msg.pid)
	m.clampSelection()
}

func (m *Model) applyEvent(ev metrics.Event) {
	switch ev.Kind {
	case metrics.EventMetrics:
		if snap, ok := m.feed.Snapshot(); ok {
			m.history.Push(snap)
			m.lastUpdate = time.Now()
		}
	case metrics.EventProcesses, metrics.EventProcessKilled:
		m.clampSelection()
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	ch := m.feed.Updates()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return feedMsg(ev)
	}
}

// Processes returns the process list in the current sort order.
func (m Model) Processes() []metrics.Process {
	procs := m.state.Processes()
	m.sortOrder.Sort(procs)
	return procs
}

// SelectedProcess returns the highlighted process row.
func (m Model) SelectedProcess() (metrics.Process, bool) {
	procs := m.Processes()
	if m.selected < 0 || m.selected >= len(procs) {
		return metrics.Process{}, false
	}
	return procs[m.selected], true
}

// Route returns the current route.
func (m Model) Route() routes.Route {
	return m.route
}

// clampSelection keeps the selection inside the list and the scroll window
// around the selection.
func (m *Model) clampSelection() {
	n := len(m.state.Processes())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	rows := m.processRows()
	if rows <= 0 {
		m.offset = 0
		return
	}
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
	if m.offset > n-rows {
		m.offset = max(n-rows, 0)
	}
}

// processRows is how many process rows fit on screen, or 0 when the height
// is unknown.
func (m Model) processRows() int {
	if m.height == 0 {
		return 0
	}
	// Section header, column header and section footer.
	rows := m.height - headerHeight - footerHeight - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

// describe returns the user-facing line of an error.
func describe(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
