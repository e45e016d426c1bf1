package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/perfdash/perfdash/internal/metrics"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused in printed output.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
// This is for CLI output (not TUI), producing a simple formatted table.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// ProcessColumns are the columns of RenderProcessTable.
var ProcessColumns = []TableColumn{
	{Title: "PID", Width: 8},
	{Title: "NAME", Width: 24},
	{Title: "CPU%", Width: 7},
	{Title: "MEM%", Width: 7},
	{Title: "RSS", Width: 10},
	{Title: "USER", Width: 12},
}

// ProcessRows formats procs as ProcessColumns rows. Values at or above
// their threshold are marked with a trailing "!".
func ProcessRows(procs []metrics.Process, cpuThreshold, memThreshold float64) [][]string {
	rows := make([][]string, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.PID),
			p.Name,
			flag(fmt.Sprintf("%.1f", p.CPUPercent), p.CPUPercent, cpuThreshold),
			flag(fmt.Sprintf("%.1f", p.MemoryPercent), p.MemoryPercent, memThreshold),
			humanize.IBytes(p.RSSBytes),
			p.User,
		})
	}
	return rows
}

// RenderProcessTable renders procs for printed output.
func RenderProcessTable(procs []metrics.Process, cpuThreshold, memThreshold float64) string {
	if len(procs) == 0 {
		return "No processes reported"
	}
	return RenderSimpleTable(ProcessColumns, ProcessRows(procs, cpuThreshold, memThreshold))
}

func flag(s string, percent, threshold float64) string {
	if threshold > 0 && percent >= threshold {
		return s + "!"
	}
	return s
}

// CheckRow is one line of a status report.
type CheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string
	Message    string
	Suggestion string // shown unless the check passed
}

// RenderCheckTable renders check results grouped by category, in first-seen
// category order.
func RenderCheckTable(rows []CheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	categories := make(map[string][]CheckRow)
	var order []string
	for _, row := range rows {
		if _, ok := categories[row.Category]; !ok {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	var b strings.Builder
	for _, cat := range order {
		b.WriteString(headerStyle.Render(cat) + "\n")

		for _, row := range categories[cat] {
			var icon string
			switch row.Status {
			case "pass":
				icon = successStyle.Render(SymbolSuccess)
			case "warn":
				icon = warnStyle.Render(SymbolWarn)
			case "fail":
				icon = errorStyle.Render(SymbolFail)
			default:
				icon = mutedStyle.Render(SymbolPending)
			}

			b.WriteString("  " + icon + " " + row.Message + "\n")
			if row.Suggestion != "" && row.Status != "pass" {
				b.WriteString("    " + mutedStyle.Render(row.Suggestion) + "\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
