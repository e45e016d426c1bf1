package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette is one theme's set of colors.
type Palette struct {
	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	// Semantic colors for metrics
	Healthy  lipgloss.Color
	Warning  lipgloss.Color
	Critical lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	Accent    lipgloss.Color
	AccentDim lipgloss.Color
	Graph     lipgloss.Color
}

// DarkPalette is the default theme.
var DarkPalette = Palette{
	Background: lipgloss.Color("#0A0A0F"),
	Surface:    lipgloss.Color("#12121A"),
	Border:     lipgloss.Color("#2A2A4A"),

	Healthy:  lipgloss.Color("#39FF14"),
	Warning:  lipgloss.Color("#FFAA00"),
	Critical: lipgloss.Color("#FF0055"),

	TextPrimary:   lipgloss.Color("#FFFFFF"),
	TextSecondary: lipgloss.Color("#B4B4D0"),
	TextMuted:     lipgloss.Color("#6B6B8D"),

	Accent:    lipgloss.Color("#FF2E97"),
	AccentDim: lipgloss.Color("#BF40FF"),
	Graph:     lipgloss.Color("#00FFFF"),
}

// LightPalette is used when dark mode is off.
var LightPalette = Palette{
	Background: lipgloss.Color("#FAFAFC"),
	Surface:    lipgloss.Color("#EDEDF4"),
	Border:     lipgloss.Color("#C8C8DC"),

	Healthy:  lipgloss.Color("#1A8F2E"),
	Warning:  lipgloss.Color("#B86E00"),
	Critical: lipgloss.Color("#C8003C"),

	TextPrimary:   lipgloss.Color("#14141F"),
	TextSecondary: lipgloss.Color("#4A4A66"),
	TextMuted:     lipgloss.Color("#8A8AA3"),

	Accent:    lipgloss.Color("#C2186B"),
	AccentDim: lipgloss.Color("#7B1FA2"),
	Graph:     lipgloss.Color("#00838F"),
}

// PaletteFor returns the palette for the dark mode preference.
func PaletteFor(dark bool) Palette {
	if dark {
		return DarkPalette
	}
	return LightPalette
}

// WarningRatio places the warning band below a threshold: a value is a
// warning once it reaches WarningRatio of the threshold.
const WarningRatio = 0.75

// Styles are the rendered styles for one palette.
type Styles struct {
	Palette Palette

	Header    lipgloss.Style
	Footer    lipgloss.Style
	Tab       lipgloss.Style
	TabActive lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Button    lipgloss.Style
	ButtonOn  lipgloss.Style

	HelpBox   lipgloss.Style
	HelpTitle lipgloss.Style
	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
}

// NewStyles builds the styles for the dark mode preference.
func NewStyles(dark bool) Styles {
	p := PaletteFor(dark)
	return Styles{
		Palette: p,

		Header: lipgloss.NewStyle().
			Foreground(p.TextPrimary).
			Background(p.Surface).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(p.TextMuted).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Underline(true).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Label: lipgloss.NewStyle().Foreground(p.TextSecondary),
		Value: lipgloss.NewStyle().Foreground(p.TextPrimary),
		Muted: lipgloss.NewStyle().Foreground(p.TextMuted),

		Selected: lipgloss.NewStyle().
			Foreground(p.TextPrimary).
			Background(p.Border).
			Bold(true),

		Error:   lipgloss.NewStyle().Foreground(p.Critical).Bold(true),
		Success: lipgloss.NewStyle().Foreground(p.Healthy),

		Button: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 2),

		ButtonOn: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(0, 2),

		HelpBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Background(p.Surface).
			Padding(1, 2),

		HelpTitle: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			MarginBottom(1),

		HelpKey: lipgloss.NewStyle().
			Foreground(p.TextPrimary).
			Bold(true).
			Width(14),

		HelpDesc: lipgloss.NewStyle().Foreground(p.TextSecondary),
	}
}

// MetricColor colors a percentage against threshold: critical at or above
// it, warning from WarningRatio of it, healthy below.
func (s Styles) MetricColor(percent, threshold float64) lipgloss.Color {
	switch {
	case percent >= threshold:
		return s.Palette.Critical
	case percent >= threshold*WarningRatio:
		return s.Palette.Warning
	default:
		return s.Palette.Healthy
	}
}

// Metric renders a formatted value in its threshold color.
func (s Styles) Metric(text string, percent, threshold float64) string {
	return lipgloss.NewStyle().Foreground(s.MetricColor(percent, threshold)).Render(text)
}

// ProgressBar renders a bar of width cells filled to percent, colored
// against threshold.
func (s Styles) ProgressBar(width int, percent, threshold float64) string {
	if width < 1 {
		width = 1
	}

	// Clamp percentage to 0-100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return lipgloss.NewStyle().Foreground(s.MetricColor(percent, threshold)).Render(bar)
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func (s Styles) SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}

	border := lipgloss.NewStyle().Foreground(s.Palette.Border)
	valueStyle := lipgloss.NewStyle().Foreground(s.Palette.Graph).Bold(true)

	return border.Render("╭─ ") +
		s.Title.Render(title) +
		border.Render(" "+strings.Repeat("─", fillWidth)+" ") +
		valueStyle.Render(value) +
		border.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
func (s Styles) SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	return lipgloss.NewStyle().Foreground(s.Palette.Border).Render("╰" + strings.Repeat("─", width-2) + "╯")
}

// SectionLine renders a content line between side borders, padded to width.
func (s Styles) SectionLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	border := lipgloss.NewStyle().Foreground(s.Palette.Border)
	padding := width - 4 - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}
	return border.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + border.Render("│")
}
