package monitor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap binds keys to Actions.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	NextPanel   key.Binding
	PrevPanel   key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	CycleSort   key.Binding
	ReverseSort key.Binding
	FreeOnly    key.Binding
	Group       key.Binding
	Detail      key.Binding
	Back        key.Binding
	Help        key.Binding
	Refresh     key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+f", " "), key.WithHelp("pgdn", "page down")),
		Home:        key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first row")),
		End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end/G", "last row")),
		NextPanel:   key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next panel")),
		PrevPanel:   key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev panel")),
		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFilter: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear filter")),
		CycleSort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		ReverseSort: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse sort")),
		FreeOnly:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "free GPUs only")),
		Group:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group by partition")),
		Detail:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the footer hint line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.CycleSort, k.FreeOnly, k.NextPanel, k.Detail, k.Help, k.Quit}
}

// FullHelp is the help overlay, one column per slice.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.NextPanel, k.PrevPanel, k.Detail, k.Back, k.Refresh},
		{k.Filter, k.ClearFilter, k.CycleSort, k.ReverseSort, k.FreeOnly, k.Group},
		{k.Help, k.Quit},
	}
}

// ActionFor maps a key press to an Action. ActionNone means the key is
// not bound.
func (k KeyMap) ActionFor(msg tea.KeyMsg) Action {
	bindings := []struct {
		binding key.Binding
		action  Action
	}{
		{k.Quit, ActionQuit},
		{k.Help, ActionToggleHelp},
		{k.Back, ActionBack},
		{k.Up, ActionMoveUp},
		{k.Down, ActionMoveDown},
		{k.PageUp, ActionPageUp},
		{k.PageDown, ActionPageDown},
		{k.Home, ActionHome},
		{k.End, ActionEnd},
		{k.NextPanel, ActionNextPanel},
		{k.PrevPanel, ActionPrevPanel},
		{k.Filter, ActionToggleFilter},
		{k.ClearFilter, ActionClearFilter},
		{k.CycleSort, ActionCycleSort},
		{k.ReverseSort, ActionReverseSort},
		{k.FreeOnly, ActionToggleFreeOnly},
		{k.Group, ActionToggleGroup},
		{k.Detail, ActionToggleDetail},
		{k.Refresh, ActionRefresh},
	}
	for _, b := range bindings {
		if key.Matches(msg, b.binding) {
			return b.action
		}
	}
	return ActionNone
}
