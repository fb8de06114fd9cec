// Package monitor implements the live TUI dashboard for Slurm GPU allocation.
//
// The dashboard shows three tables (nodes, jobs and partitions) built from
// the latest cluster.Snapshot, with a cluster-wide GPU bar, a staleness
// banner when the last poll failed, and counters for parse warnings and
// data anomalies.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: holds the latest poll.Update, the ViewState and terminal size
//   - Update: applies key presses, resizes, poll results and clock ticks
//   - View: calls Render, a pure function of a Frame
//
// # Key Components
//
//	ViewState   - Panel, per-panel scroll and sort, filter and toggles
//	Action      - Named user intents; KeyMap maps keys onto them
//	Render      - Draws a Frame; never mutates the snapshot or the view
//	Model       - Wires the poll.Store and the keyboard to Render
//
// # Message Flow
//
// Polling runs outside the program, in its own goroutine:
//
//  1. poll.Poller publishes each Update to a poll.Store
//  2. waitCmd blocks on the Store and delivers an updateMsg
//  3. Update stores it and clamps every panel's scroll to the new rows
//  4. View re-renders; a once-a-second clockMsg keeps ages current
//
// A burst of publishes coalesces into one updateMsg carrying the newest
// Update, so the final state is always drawn.
//
// # Table Pipeline
//
// Each panel's rows go through the same steps on every render: filter
// (case-insensitive substring over the cells, plus the free-GPU toggle for
// nodes), sort, optional grouping of nodes under partition headers, and
// finally the scroll clamp. Scrolling past the end is therefore harmless:
// input never checks the rows, the renderer clamps.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C        - Quit
//	r                - Poll now
//	j/k, ↑/↓         - Move selection
//	PgUp/PgDn        - Move a page
//	Home/End         - First / last row
//	Tab, Shift+Tab   - Switch panel
//	/                - Filter (live)
//	s, S             - Cycle sort column / reverse
//	f                - Nodes with free GPUs only
//	g                - Group nodes by partition
//	Enter            - Toggle detail pane
//	Esc              - Close help, filter or detail
//	?                - Toggle help overlay
package monitor
