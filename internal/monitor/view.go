package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/poll"
	"github.com/rileyhilliard/sgpu/internal/ui"
	"github.com/rileyhilliard/sgpu/internal/util"
)

// Frame is everything one render needs.
type Frame struct {
	// Update is the latest poll result, nil before the first poll finishes.
	Update *poll.Update
	View   ViewState
	Width  int
	Height int
	Now    time.Time
	// Interval is the poll interval shown in the header.
	Interval time.Duration
	// FilterInput is the rendered filter text box, shown while filtering.
	FilterInput string
	// Source names where the data comes from.
	Source string
	Keys   KeyMap
}

// chromeLines counts the lines around the table: header, status, tabs,
// column titles and footer.
const chromeLines = 5

// columnGap separates table cells.
const columnGap = "  "

// TableHeight returns how many table rows fit for the given terminal size
// and view. It is also the page size for PageUp and PageDown.
func TableHeight(height int, v ViewState) int {
	body := height - chromeLines
	if body < 1 {
		return 1
	}
	return body - detailHeight(body, v)
}

func detailHeight(body int, v ViewState) int {
	if !v.ShowDetail {
		return 0
	}
	return body / 2
}

// Render draws the dashboard. It reads its inputs and changes none of them.
func Render(f Frame) string {
	if f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	if len(f.Keys.Quit.Keys()) == 0 {
		f.Keys = DefaultKeyMap()
	}
	if f.View.ShowHelp {
		return renderHelpOverlay(f)
	}

	var snap *cluster.Snapshot
	if f.Update != nil {
		snap = f.Update.Snapshot
	}

	rows := buildRows(snap, f.View, f.View.Panel, f.Now)
	visible := TableHeight(f.Height, f.View)
	scroll := f.View.Current().Clamp(len(rows), visible)

	lines := []string{
		renderHeader(f, snap),
		renderStatus(f, snap),
		renderTabs(f, snap),
	}

	body := f.Height - chromeLines
	if len(rows) == 0 {
		lines = append(lines, renderNoData(f, snap)...)
	} else {
		lines = append(lines, renderTable(rows, columnsFor(f.View.Panel), scroll, visible, f.Width)...)
	}
	lines = padLines(lines, 3+1+visible)

	if d := detailHeight(max(body, 0), f.View); d > 0 {
		var selected *row
		if len(rows) > 0 {
			selected = &rows[scroll.Cursor]
		}
		lines = append(lines, padLines(renderDetail(f, snap, selected, d), d)...)
	}

	lines = append(lines, renderFooter(f))

	if len(lines) > f.Height {
		// Keep the footer when the terminal is too short for everything.
		lines = append(lines[:f.Height-1], lines[len(lines)-1])
	}
	return fitScreen(lines, f.Width, f.Height)
}

// fitScreen cuts lines to the terminal so the frame never wraps or scrolls.
func fitScreen(lines []string, width, height int) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = truncate.String(l, uint(width))
	}
	return strings.Join(lines, "\n")
}

func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

// renderHeader: title, cluster GPU bar, counts, data age.
func renderHeader(f Frame, snap *cluster.Snapshot) string {
	title := TitleStyle.Render("sgpu")
	if f.Source != "" {
		title += MutedStyle.Render(" " + f.Source)
	}

	if f.Update == nil {
		return title + LabelStyle.Render("  waiting for first poll...")
	}
	if snap == nil {
		return title + LabelStyle.Render("  no data yet")
	}

	t := snap.Totals()
	pct := AllocPercent(t.GPUAlloc, t.GPUTotal)
	gpus := fmt.Sprintf("  GPU %s %s",
		ProgressBar(10, pct),
		ValueStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", t.GPUAlloc, t.GPUTotal, pct)))
	free := "  free " + FreeCellStyle.Render(fmt.Sprint(t.GPUFree()))
	counts := LabelStyle.Render(fmt.Sprintf("  %d nodes  %d jobs (%d running, %d pending)",
		t.Nodes, t.Jobs, t.Running, t.Pending))
	age := MutedStyle.Render("  updated " + humanize.RelTime(snap.CapturedAt(), f.Now, "ago", "from now"))
	if f.Interval > 0 {
		age += MutedStyle.Render(fmt.Sprintf(", every %s", f.Interval))
	}

	return title + gpus + free + counts + age
}

// renderStatus is the staleness banner when the last poll failed, otherwise
// the data-quality counters.
func renderStatus(f Frame, snap *cluster.Snapshot) string {
	u := f.Update
	if u == nil {
		return ""
	}

	var counters []string
	if n := len(u.Warnings); n > 0 {
		counters = append(counters, WarningTextStyle.Render(util.Quantity(n, "parse warning", "parse warnings")))
	}
	if snap != nil {
		if n := len(snap.Anomalies()); n > 0 {
			counters = append(counters, WarningTextStyle.Render(util.Quantity(n, "anomaly", "anomalies")))
		}
	}

	if u.Stale {
		msg := fmt.Sprintf(" %s STALE: %s ", ui.SymbolFail, errors.Summary(u.Err))
		detail := "  " + util.Quantity(u.ConsecutiveFailures, "failed poll", "failed polls")
		if snap != nil {
			detail += ", showing data from " + humanize.RelTime(snap.CapturedAt(), f.Now, "ago", "from now")
		}
		return strings.Join(append([]string{StaleBannerStyle.Render(msg) + WarningTextStyle.Render(detail)}, counters...), "  ")
	}

	if len(counters) == 0 {
		return HealthyTextStyle.Render(ui.SymbolSuccess) + MutedStyle.Render(fmt.Sprintf(" polled in %s", u.Took.Round(time.Millisecond)))
	}
	return strings.Join(counters, "  ")
}

// renderTabs shows the panels with row counts, then the active sort and
// filters.
func renderTabs(f Frame, snap *cluster.Snapshot) string {
	var tabs []string
	for p := Panel(0); p < panelCount; p++ {
		label := p.String()
		if snap != nil {
			label = fmt.Sprintf("%s (%d)", label, panelSize(snap, p))
		}
		if p == f.View.Panel {
			tabs = append(tabs, TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, TabInactiveStyle.Render(label))
		}
	}

	srt := f.View.CurrentSort()
	cols := columnsFor(f.View.Panel)
	arrow := "↑"
	if srt.Desc {
		arrow = "↓"
	}
	info := []string{"sort " + cols[min(max(srt.Key, 0), len(cols)-1)].title + " " + arrow}
	if f.View.FreeOnly && f.View.Panel == PanelNodes {
		info = append(info, "free only")
	}
	if f.View.GroupByPartition && f.View.Panel == PanelNodes {
		info = append(info, "grouped")
	}
	if f.View.Filter != "" {
		info = append(info, fmt.Sprintf("filter %q", f.View.Filter))
	}

	return strings.Join(tabs, " ") + MutedStyle.Render("   "+strings.Join(info, " · "))
}

func panelSize(snap *cluster.Snapshot, p Panel) int {
	t := snap.Totals()
	switch p {
	case PanelJobs:
		return t.Jobs
	case PanelPartitions:
		return t.Partitions
	default:
		return t.Nodes
	}
}

func renderNoData(f Frame, snap *cluster.Snapshot) []string {
	lines := []string{"", LabelStyle.Render("  No data")}
	switch {
	case f.Update == nil:
		lines = append(lines, MutedStyle.Render("  The first poll has not finished yet."))
	case snap == nil:
		lines = append(lines, MutedStyle.Render("  No poll has succeeded yet."))
	case f.View.Filter != "" || (f.View.FreeOnly && f.View.Panel == PanelNodes):
		lines = append(lines, MutedStyle.Render("  Nothing matches the current filter."))
	default:
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  The cluster reported no %s.", strings.ToLower(f.View.Panel.String()))))
	}
	return lines
}

// renderTable draws the column titles and the visible slice of rows.
func renderTable(rows []row, cols []column, scroll Scroll, visible, width int) []string {
	widths := columnWidths(rows, cols, width)

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = fitCell(c.title, widths[i], c.numeric)
	}
	lines := []string{TableHeaderStyle.Render(strings.Join(titles, columnGap))}

	end := min(scroll.Offset+visible, len(rows))
	for i := scroll.Offset; i < end; i++ {
		r := rows[i]
		selected := i == scroll.Cursor

		if r.header {
			line := "▾ " + r.cells[0]
			if selected {
				line = SelectedRowStyle.Render(runewidth.FillRight(line, width))
			} else {
				line = GroupHeaderStyle.Render(line)
			}
			lines = append(lines, line)
			continue
		}

		cells := make([]string, len(cols))
		for c, col := range cols {
			cell := fitCell(r.cells[c], widths[c], col.numeric)
			if !selected && col.title == "FREE" && r.free > 0 {
				cell = FreeCellStyle.Render(cell)
			}
			cells[c] = cell
		}
		line := strings.Join(cells, columnGap)

		switch {
		case selected:
			line = SelectedRowStyle.Render(runewidth.FillRight(line, width))
		case i%2 == 1:
			line = ZebraRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// maxColumnWidth caps fixed columns so one long job name cannot push the
// rest of the table off screen.
const maxColumnWidth = 24

// columnWidths sizes each fixed column to its widest cell. The flex column
// gets the remaining width.
func columnWidths(rows []row, cols []column, width int) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, r := range rows {
		if r.header {
			continue
		}
		for i, cell := range r.cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	used := 0
	for i, c := range cols {
		if !c.flex {
			widths[i] = min(widths[i], maxColumnWidth)
			used += widths[i] + len(columnGap)
		}
	}
	for i, c := range cols {
		if c.flex {
			widths[i] = max(min(widths[i], width-used), runewidth.StringWidth(c.title))
		}
	}
	return widths
}

func fitCell(s string, width int, right bool) string {
	s = runewidth.Truncate(s, width, "…")
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// renderFooter shows the filter box while filtering, otherwise key hints.
func renderFooter(f Frame) string {
	if f.View.Filtering {
		return LabelStyle.Render("filter ") + f.FilterInput + MutedStyle.Render("  enter apply · esc close · ctrl+u clear")
	}
	return FooterStyle.Render(newHelp(f.Width).View(f.Keys))
}
