package monitor

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// Help overlay styles
var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)
)

// newHelp returns a help.Model in the dashboard palette.
func newHelp(width int) help.Model {
	h := help.New()
	h.Width = width
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(ColorTextMuted)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(ColorBorder)
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(ColorTextPrimary).Bold(true)
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	h.Styles.FullSeparator = lipgloss.NewStyle().Foreground(ColorBorder)
	return h
}

// renderHelpOverlay renders a centered box with every key binding.
func renderHelpOverlay(f Frame) string {
	h := newHelp(0)
	h.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		helpTitleStyle.Render("Keyboard Shortcuts"),
		h.View(f.Keys),
		"",
		LabelStyle.Render("Press ? or esc to close"),
	)

	screen := lipgloss.Place(
		f.Width,
		f.Height,
		lipgloss.Center,
		lipgloss.Center,
		helpBoxStyle.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
	return fitScreen(strings.Split(screen, "\n"), f.Width, f.Height)
}
