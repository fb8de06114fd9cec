package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette
const (
	// Background colors
	ColorDarkBg    = lipgloss.Color("#0A0A0F") // Deep void
	ColorSurfaceBg = lipgloss.Color("#12121A") // Dark surface
	ColorZebraBg   = lipgloss.Color("#181824") // Alternate row
	ColorBorder    = lipgloss.Color("#2A2A4A") // Glass border (purple tint)

	// Semantic colors
	ColorHealthy  = lipgloss.Color("#39FF14") // Neon green
	ColorWarning  = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF") // Pure white
	ColorTextSecondary = lipgloss.Color("#B4B4D0") // Lavender gray
	ColorTextMuted     = lipgloss.Color("#6B6B8D") // Purple-gray

	// Accent colors
	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple
	ColorGraph     = lipgloss.Color("#00FFFF") // Neon cyan
)

// Allocation thresholds for the GPU bar, in percent.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// Status line
	StaleBannerStyle = lipgloss.NewStyle().
				Foreground(ColorTextPrimary).
				Background(ColorCritical).
				Bold(true)

	WarningTextStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)

	HealthyTextStyle = lipgloss.NewStyle().
				Foreground(ColorHealthy)

	// Tabs
	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorAccent).
			Bold(true).
			Padding(0, 1)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorTextSecondary).
				Padding(0, 1)

	// Table
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorAccentDim).
				Bold(true)

	ZebraRowStyle = lipgloss.NewStyle().
			Background(ColorZebraBg)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorDarkBg).
				Background(ColorGraph).
				Bold(true)

	GroupHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	FreeCellStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy).
			Bold(true)

	OrphanStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Detail pane
	DetailRuleStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)

	DetailTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)
)

// MetricColor returns green below WarningThreshold, amber below
// CriticalThreshold, red above.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// AllocPercent is alloc as a percentage of total, 0 when total is 0.
func AllocPercent(alloc, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(alloc) / float64(total) * 100
}

// ProgressBar renders a bar width cells wide, colored by percent.
func ProgressBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	percent = min(max(percent, 0), 100)

	filled := min(int(percent/100.0*float64(width)), width)
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)

	return lipgloss.NewStyle().Foreground(MetricColor(percent)).Render(bar)
}

// SectionRule renders a horizontal rule with a title: ── title ─────────
func SectionRule(title string, width int) string {
	if width < 1 {
		return ""
	}
	left := DetailRuleStyle.Render("── ") + DetailTitleStyle.Render(title) + " "
	fill := width - lipgloss.Width(left)
	if fill < 0 {
		fill = 0
	}
	return left + DetailRuleStyle.Render(strings.Repeat("─", fill))
}
