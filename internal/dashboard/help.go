package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelpOverlay renders a centered box listing every key binding.
func (m Model) renderHelpOverlay() string {
	var lines []string
	lines = append(lines, m.styles.HelpTitle.Render("Keyboard Shortcuts"))

	for i, group := range m.keys.FullHelp() {
		if i > 0 {
			lines = append(lines, "")
		}
		for _, b := range group {
			h := b.Help()
			lines = append(lines, m.styles.HelpKey.Render(h.Key)+m.styles.HelpDesc.Render(h.Desc))
		}
	}

	lines = append(lines, "")
	lines = append(lines, m.styles.Label.Render("Press ? to close"))

	box := m.styles.HelpBox.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(m.styles.Palette.Background),
	)
}
