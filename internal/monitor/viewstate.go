package monitor

import "github.com/rileyhilliard/sgpu/internal/config"

// Panel is one of the dashboard's tables.
type Panel int

const (
	PanelNodes Panel = iota
	PanelJobs
	PanelPartitions
)

// panelCount is the number of panels NextPanel cycles through.
const panelCount = 3

func (p Panel) String() string {
	switch p {
	case PanelNodes:
		return "Nodes"
	case PanelJobs:
		return "Jobs"
	case PanelPartitions:
		return "Partitions"
	default:
		return "Nodes"
	}
}

// ParsePanel maps a config panel name to a Panel. Unknown names fall back
// to PanelNodes.
func ParsePanel(name string) Panel {
	switch name {
	case config.PanelJobs:
		return PanelJobs
	case config.PanelPartitions:
		return PanelPartitions
	default:
		return PanelNodes
	}
}

// Scroll is a panel's selection and first visible row. Both are row indices
// into the panel's filtered, sorted rows.
type Scroll struct {
	Cursor int
	Offset int
}

// cursorEnd parks the cursor past any plausible row count. Clamp pulls it
// back to the last row.
const cursorEnd = 1 << 30

// Clamp returns the scroll fitted to n rows with visible rows on screen.
func (s Scroll) Clamp(n, visible int) Scroll {
	if n <= 0 {
		return Scroll{}
	}
	if visible < 1 {
		visible = 1
	}

	s.Cursor = min(max(s.Cursor, 0), n-1)
	if s.Cursor < s.Offset {
		s.Offset = s.Cursor
	}
	if s.Cursor >= s.Offset+visible {
		s.Offset = s.Cursor - visible + 1
	}
	s.Offset = max(min(s.Offset, n-visible), 0)
	return s
}

// Sort is a panel's sort column and direction.
type Sort struct {
	Key  int
	Desc bool
}

// ViewState is everything the user controls. Only input changes it; a new
// snapshot never does. Scroll positions may run past the end of the current
// rows between an input and the next render, and are clamped on the way out.
type ViewState struct {
	Panel            Panel
	Scroll           [panelCount]Scroll
	Sort             [panelCount]Sort
	Filter           string
	Filtering        bool
	FreeOnly         bool
	GroupByPartition bool
	ShowHelp         bool
	ShowDetail       bool
}

// NewViewState returns the startup view for the display config.
func NewViewState(d config.DisplayConfig) ViewState {
	return ViewState{
		Panel:            ParsePanel(d.Panel),
		FreeOnly:         d.FreeOnly,
		GroupByPartition: d.GroupByPartition,
	}
}

// Current returns the active panel's scroll.
func (v ViewState) Current() Scroll {
	return v.Scroll[v.Panel]
}

// CurrentSort returns the active panel's sort.
func (v ViewState) CurrentSort() Sort {
	return v.Sort[v.Panel]
}

// Action is a named user intent. Any key scheme can drive the dashboard by
// mapping its keys onto these.
type Action int

const (
	ActionNone Action = iota
	ActionMoveUp
	ActionMoveDown
	ActionPageUp
	ActionPageDown
	ActionHome
	ActionEnd
	ActionNextPanel
	ActionPrevPanel
	ActionToggleFilter
	ActionClearFilter
	ActionCycleSort
	ActionReverseSort
	ActionToggleFreeOnly
	ActionToggleGroup
	ActionToggleDetail
	ActionBack
	ActionToggleHelp
	ActionRefresh
	ActionQuit
)

var actionNames = map[Action]string{
	ActionNone:           "none",
	ActionMoveUp:         "move-up",
	ActionMoveDown:       "move-down",
	ActionPageUp:         "page-up",
	ActionPageDown:       "page-down",
	ActionHome:           "home",
	ActionEnd:            "end",
	ActionNextPanel:      "next-panel",
	ActionPrevPanel:      "prev-panel",
	ActionToggleFilter:   "toggle-filter",
	ActionClearFilter:    "clear-filter",
	ActionCycleSort:      "cycle-sort",
	ActionReverseSort:    "reverse-sort",
	ActionToggleFreeOnly: "toggle-free-only",
	ActionToggleGroup:    "toggle-group",
	ActionToggleDetail:   "toggle-detail",
	ActionBack:           "back",
	ActionToggleHelp:     "toggle-help",
	ActionRefresh:        "refresh",
	ActionQuit:           "quit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Apply performs a navigation or toggle action. pageSize is the number of
// table rows on screen. Refresh and Quit have no effect on the view and are
// handled by the caller.
func (v *ViewState) Apply(a Action, pageSize int) {
	if pageSize < 1 {
		pageSize = 1
	}
	s := &v.Scroll[v.Panel]

	switch a {
	case ActionMoveUp:
		s.Cursor = max(s.Cursor-1, 0)
	case ActionMoveDown:
		s.Cursor = min(s.Cursor+1, cursorEnd)
	case ActionPageUp:
		s.Cursor = max(s.Cursor-pageSize, 0)
		s.Offset = max(s.Offset-pageSize, 0)
	case ActionPageDown:
		s.Cursor = min(s.Cursor+pageSize, cursorEnd)
		s.Offset = min(s.Offset+pageSize, cursorEnd)
	case ActionHome:
		*s = Scroll{}
	case ActionEnd:
		s.Cursor = cursorEnd
	case ActionNextPanel:
		v.Panel = (v.Panel + 1) % panelCount
	case ActionPrevPanel:
		v.Panel = (v.Panel + panelCount - 1) % panelCount
	case ActionToggleFilter:
		v.Filtering = !v.Filtering
	case ActionClearFilter:
		v.Filter = ""
		v.Filtering = false
	case ActionCycleSort:
		srt := &v.Sort[v.Panel]
		srt.Key = (srt.Key + 1) % len(columnsFor(v.Panel))
		srt.Desc = columnsFor(v.Panel)[srt.Key].desc
	case ActionReverseSort:
		v.Sort[v.Panel].Desc = !v.Sort[v.Panel].Desc
	case ActionToggleFreeOnly:
		v.FreeOnly = !v.FreeOnly
	case ActionToggleGroup:
		v.GroupByPartition = !v.GroupByPartition
	case ActionToggleDetail:
		v.ShowDetail = !v.ShowDetail
	case ActionBack:
		switch {
		case v.ShowHelp:
			v.ShowHelp = false
		case v.Filtering:
			v.Filtering = false
		case v.ShowDetail:
			v.ShowDetail = false
		case v.Filter != "":
			v.Filter = ""
		}
	case ActionToggleHelp:
		v.ShowHelp = !v.ShowHelp
	}
}

// SetFilter replaces the filter text. A new filter starts the active panel
// back at the top.
func (v *ViewState) SetFilter(text string) {
	if text == v.Filter {
		return
	}
	v.Filter = text
	v.Scroll[v.Panel] = Scroll{}
}

// Reconcile clamps every panel's scroll to its row count. rows holds the
// row count per panel and visible the table height.
func (v *ViewState) Reconcile(rows [panelCount]int, visible int) {
	for p := range v.Scroll {
		v.Scroll[p] = v.Scroll[p].Clamp(rows[p], visible)
	}
}
