package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/perfdash/perfdash/internal/routes"
)

// DiskThreshold is the usage percent at which a partition is critical.
const DiskThreshold = 90.0

const defaultWidth = 80

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.route.Page {
	case routes.PageProcesses:
		b.WriteString(m.renderProcesses())
	case routes.PageDisk:
		b.WriteString(m.renderDisks())
	case routes.PageSettings:
		b.WriteString(m.renderSettings())
	default:
		b.WriteString(m.renderOverview())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

// renderHeader shows the title, the connection state and the agent URL.
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("perfdash")

	var conn string
	if m.state.IsConnected() {
		conn = m.styles.Success.Render("● connected")
	} else {
		conn = m.spinner.View() + m.styles.Label.Render(" connecting")
	}

	parts := []string{title, conn}
	if m.apiURL != "" {
		parts = append(parts, m.styles.Muted.Render(m.apiURL))
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, m.styles.Muted.Render("updated "+humanize.Time(m.lastUpdate)))
	}
	return m.styles.Header.Render(strings.Join(parts, "  "))
}

func (m Model) renderTabs() string {
	var tabs []string
	for _, r := range m.state.Routes.Routes() {
		label := r.Key + " " + r.Title
		if r.Path == m.route.Path {
			tabs = append(tabs, m.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderFooter shows the last error, else the last notice, then key hints.
func (m Model) renderFooter() string {
	var status string
	switch {
	case m.lastErr != "":
		status = m.styles.Error.Render("✗ " + m.lastErr)
	case m.notice != "":
		status = m.styles.Label.Render(m.notice)
	}

	hints := m.help.View(m.keys)
	if status == "" {
		return m.styles.Footer.Render(hints)
	}
	return m.styles.Footer.Render(status + "\n" + hints)
}

func (m Model) renderOverview() string {
	width := m.contentWidth()
	snap, ok := m.feed.Snapshot()
	if !ok {
		return m.styles.Label.Render("Waiting for metrics from the agent...")
	}

	th := m.state.Thresholds
	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	graphWidth := width - 4
	if graphWidth > DefaultHistorySize {
		graphWidth = DefaultHistorySize
	}

	var lines []string

	cpuValue := m.styles.Metric(fmt.Sprintf("%5.1f%%", snap.CPU.Percent), snap.CPU.Percent, th.CPU)
	lines = append(lines, m.styles.SectionHeader("CPU", fmt.Sprintf("%d cores", snap.CPU.Cores), width))
	lines = append(lines, m.styles.SectionLine(
		m.styles.ProgressBar(barWidth, snap.CPU.Percent, th.CPU)+" "+cpuValue, width))
	lines = append(lines, m.styles.SectionLine(
		Sparkline(m.history.CPU(graphWidth), graphWidth, m.styles.Palette.Graph), width))
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(fmt.Sprintf(
		"load %.2f %.2f %.2f", snap.CPU.LoadAvg[0], snap.CPU.LoadAvg[1], snap.CPU.LoadAvg[2])), width))
	lines = append(lines, m.styles.SectionFooter(width))

	memValue := m.styles.Metric(fmt.Sprintf("%5.1f%%", snap.Memory.Percent), snap.Memory.Percent, th.Memory)
	lines = append(lines, m.styles.SectionHeader("Memory",
		humanize.IBytes(snap.Memory.UsedBytes)+" / "+humanize.IBytes(snap.Memory.TotalBytes), width))
	lines = append(lines, m.styles.SectionLine(
		m.styles.ProgressBar(barWidth, snap.Memory.Percent, th.Memory)+" "+memValue, width))
	lines = append(lines, m.styles.SectionLine(
		Sparkline(m.history.Memory(graphWidth), graphWidth, m.styles.Palette.AccentDim), width))
	if snap.Memory.SwapTotalBytes > 0 {
		lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(
			"swap "+humanize.IBytes(snap.Memory.SwapUsedBytes)+" / "+humanize.IBytes(snap.Memory.SwapTotalBytes)), width))
	}
	lines = append(lines, m.styles.SectionFooter(width))

	rx, tx := m.history.NetworkRates()
	lines = append(lines, m.styles.SectionHeader("Host", snap.Host.Hostname, width))
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(
		fmt.Sprintf("%s %s  kernel %s", snap.Host.Platform, snap.Host.OS, snap.Host.Kernel)), width))
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(
		"uptime "+formatUptime(snap.Host.Uptime())), width))
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(
		fmt.Sprintf("net ↓ %s/s  ↑ %s/s", humanize.IBytes(uint64(rx)), humanize.IBytes(uint64(tx)))), width))
	lines = append(lines, m.styles.SectionFooter(width))

	return strings.Join(lines, "\n")
}

// Process table column widths.
const (
	colPID  = 8
	colCPU  = 8
	colMem  = 8
	colRSS  = 10
	colUser = 12
)

func (m Model) renderProcesses() string {
	width := m.contentWidth()
	procs := m.Processes()

	value := fmt.Sprintf("%d procs · sort %s", len(procs), m.sortOrder)
	lines := []string{m.styles.SectionHeader("Processes", value, width)}

	if len(procs) == 0 {
		msg := "No processes yet. Press r to refresh."
		if !m.state.IsConnected() {
			msg = "Not connected to the agent. Processes load once it is reachable."
		}
		lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(msg), width))
		lines = append(lines, m.styles.SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	nameWidth := width - 4 - colPID - colCPU - colMem - colRSS - colUser
	if nameWidth < 8 {
		nameWidth = 8
	}

	header := fmt.Sprintf("%-*s%-*s%*s%*s%*s %-*s",
		colPID, "PID", nameWidth, "NAME", colCPU, "CPU%", colMem, "MEM%", colRSS, "RSS", colUser-1, "USER")
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Bold(true).Render(header), width))

	start, end := 0, len(procs)
	if rows := m.processRows(); rows > 0 {
		start = m.offset
		end = min(start+rows, len(procs))
	}

	th := m.state.Thresholds
	for i := start; i < end; i++ {
		p := procs[i]
		pid := fmt.Sprintf("%-*d", colPID, p.PID)
		name := fmt.Sprintf("%-*s", nameWidth, truncate(p.Name, nameWidth-1))
		cpu := fmt.Sprintf("%*.1f", colCPU, p.CPUPercent)
		mem := fmt.Sprintf("%*.1f", colMem, p.MemoryPercent)
		rss := fmt.Sprintf("%*s", colRSS, humanize.IBytes(p.RSSBytes))
		user := fmt.Sprintf(" %-*s", colUser-1, truncate(p.User, colUser-2))

		var row string
		if i == m.selected {
			row = m.styles.Selected.Render(pid + name + cpu + mem + rss + user)
		} else {
			row = m.styles.Value.Render(pid+name) +
				m.styles.Metric(cpu, p.CPUPercent, th.CPU) +
				m.styles.Metric(mem, p.MemoryPercent, th.Memory) +
				m.styles.Label.Render(rss+user)
		}
		lines = append(lines, m.styles.SectionLine(row, width))
	}

	lines = append(lines, m.styles.SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderDisks() string {
	width := m.contentWidth()
	disks := m.feed.Disks()

	lines := []string{m.styles.SectionHeader("Disk", fmt.Sprintf("%d mounts", len(disks)), width)}
	if len(disks) == 0 {
		lines = append(lines, m.styles.SectionLine(m.styles.Label.Render("No disk data yet."), width))
		lines = append(lines, m.styles.SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	barWidth := width - 44
	if barWidth < 10 {
		barWidth = 10
	}
	for _, d := range disks {
		label := fmt.Sprintf("%-16s", truncate(d.Mountpoint, 15))
		pct := m.styles.Metric(fmt.Sprintf("%5.1f%%", d.UsedPercent), d.UsedPercent, DiskThreshold)
		size := m.styles.Label.Render(fmt.Sprintf(" %s / %s", humanize.IBytes(d.UsedBytes), humanize.IBytes(d.TotalBytes)))
		lines = append(lines, m.styles.SectionLine(
			m.styles.Value.Render(label)+m.styles.ProgressBar(barWidth, d.UsedPercent, DiskThreshold)+" "+pct+size, width))
		lines = append(lines, m.styles.SectionLine(
			m.styles.Muted.Render(fmt.Sprintf("  %s  %s", d.Device, d.Fstype)), width))
	}
	lines = append(lines, m.styles.SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderSettings() string {
	width := m.contentWidth()
	lines := []string{m.styles.SectionHeader("Settings", "", width)}

	theme := "Light"
	if m.state.DarkMode() {
		theme = "Dark"
	}
	themeLine := m.styles.Label.Render("Theme       ") + m.styles.Value.Render(theme)
	if m.settingsFocus == settingTheme {
		themeLine = m.styles.Selected.Render("▸ Theme       " + theme + "  (enter to toggle)")
	}
	lines = append(lines, m.styles.SectionLine(themeLine, width))

	conn := m.styles.Error.Render("Disconnected")
	if m.state.IsConnected() {
		conn = m.styles.Success.Render("Connected")
	}
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render("Connection  ")+conn, width))
	if m.apiURL != "" {
		lines = append(lines, m.styles.SectionLine(m.styles.Label.Render("Agent       ")+m.styles.Value.Render(m.apiURL), width))
	}

	th := m.state.Thresholds
	lines = append(lines, m.styles.SectionLine(m.styles.Label.Render(
		fmt.Sprintf("Thresholds  CPU %.0f%%  Memory %.0f%%", th.CPU, th.Memory)), width))
	lines = append(lines, m.styles.SectionLine("", width))

	button := m.styles.Button
	if m.settingsFocus == settingRefresh {
		button = m.styles.ButtonOn
	}
	for _, l := range strings.Split(button.Render("Refresh Processes"), "\n") {
		lines = append(lines, m.styles.SectionLine(l, width))
	}

	lines = append(lines, m.styles.SectionFooter(width))
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
