// Package ui provides the styled building blocks for sgpu's plain CLI
// output: the color palette, status symbols, non-interactive tables and a
// terminal spinner. The full-screen dashboard lives in package monitor and
// has its own styles.
//
// # Color Scheme
//
// Colors are ANSI codes so output stays readable on light and dark themes:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings
//	ColorInfo      (cyan)   - Section headings
//	ColorMuted     (gray)   - Secondary text, timing info
//
// lipgloss drops colors automatically when output is not a terminal, and
// the --no-color flag forces the ASCII profile.
//
// # Tables
//
// RenderSimpleTable renders a bubbles table without focus or scrolling.
// AutoColumns sizes the columns to their content:
//
//	cols := ui.AutoColumns([]string{"NODE", "FREE"}, rows, 40)
//	fmt.Println(ui.RenderSimpleTable(cols, rows))
//
// # Spinner
//
//	s := ui.NewSpinner(os.Stderr, "Polling login1")
//	s.Start()
//	// ... do work ...
//	s.Success("0.4s") // or s.Fail("timeout")
package ui
