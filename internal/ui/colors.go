package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors for status indication. ANSI codes keep plain CLI output
// readable on any terminal theme; the dashboard has its own palette.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
)

// Heading renders a section title.
func Heading(s string) string { return headingStyle.Render(s) }

// Muted renders secondary text such as timings and paths.
func Muted(s string) string { return mutedStyle.Render(s) }

// Success renders msg after a green check mark.
func Success(msg string) string { return successStyle.Render(SymbolSuccess) + " " + msg }

// Warning renders msg after a yellow warning sign.
func Warning(msg string) string { return warningStyle.Render(SymbolWarning) + " " + msg }

// Failure renders msg after a red cross.
func Failure(msg string) string { return errorStyle.Render(SymbolFail) + " " + msg }
