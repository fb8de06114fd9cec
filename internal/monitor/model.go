package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/poll"
)

// Options wire a Model to the poll loop.
type Options struct {
	Store *poll.Store
	// Refresh asks the poll loop for an immediate poll.
	Refresh func()
	// Cancel stops the poll loop. Quit calls it before the program exits.
	Cancel   context.CancelFunc
	Interval time.Duration
	Source   string
	Display  config.DisplayConfig
	Keys     KeyMap
	// Now defaults to time.Now.
	Now func() time.Time
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx  context.Context
	opts Options

	update *poll.Update
	view   ViewState
	filter textinput.Model

	width    int
	height   int
	now      time.Time
	quitting bool
}

// updateMsg carries a new poll result from the Store.
type updateMsg struct {
	update *poll.Update
}

// clockMsg ticks once a second so ages stay current between polls.
type clockMsg time.Time

const clockInterval = time.Second

// NewModel creates the dashboard. ctx bounds the wait on the Store; it should
// be the poll loop's context so both end together.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Keys.Quit.Keys()) == 0 {
		opts.Keys = DefaultKeyMap()
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "node, user, state, partition"
	ti.CharLimit = 64

	m := Model{
		ctx:    ctx,
		opts:   opts,
		view:   NewViewState(opts.Display),
		filter: ti,
		now:    opts.Now(),
	}
	if opts.Store != nil {
		m.update = opts.Store.Latest()
	}
	return m
}

// Init starts waiting for poll results and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitCmd(), m.clockCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = max(msg.Width-40, 10)

	case updateMsg:
		m.update = msg.update
		m.now = m.opts.Now()
		cmd = m.waitCmd()

	case clockMsg:
		m.now = time.Time(msg)
		cmd = m.clockCmd()
	}

	m.reconcile()
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return Render(m.frame())
}

func (m Model) frame() Frame {
	return Frame{
		Update:      m.update,
		View:        m.view,
		Width:       m.width,
		Height:      m.height,
		Now:         m.now,
		Interval:    m.opts.Interval,
		FilterInput: m.filter.View(),
		Source:      m.opts.Source,
		Keys:        m.opts.Keys,
	}
}

// ViewState returns the current view state.
func (m Model) ViewState() ViewState {
	return m.view
}

// Latest returns the poll result on screen.
func (m Model) Latest() *poll.Update {
	return m.update
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.view.Filtering {
		return m.handleFilterKey(msg)
	}

	action := m.opts.Keys.ActionFor(msg)
	if m.view.ShowHelp && action != ActionToggleHelp && action != ActionBack && action != ActionQuit {
		return nil
	}

	switch action {
	case ActionNone:
		return nil
	case ActionQuit:
		return m.quit()
	case ActionRefresh:
		if m.opts.Refresh != nil {
			m.opts.Refresh()
		}
		return nil
	case ActionToggleFilter:
		m.view.Apply(action, m.pageSize())
		m.filter.SetValue(m.view.Filter)
		m.filter.CursorEnd()
		return m.filter.Focus()
	case ActionClearFilter:
		m.view.Apply(action, m.pageSize())
		m.filter.SetValue("")
		m.filter.Blur()
		return nil
	case ActionBack:
		m.view.Apply(action, m.pageSize())
		m.filter.SetValue(m.view.Filter)
		return nil
	}

	m.view.Apply(action, m.pageSize())
	return nil
}

// handleFilterKey edits the live filter. Every keystroke lands in the view
// state so the table narrows as the user types.
func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEnter, tea.KeyEsc:
		m.view.Filtering = false
		m.filter.Blur()
		return nil
	case tea.KeyCtrlU:
		m.view.Apply(ActionClearFilter, m.pageSize())
		m.filter.SetValue("")
		m.filter.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.view.SetFilter(m.filter.Value())
	return cmd
}

// quit stops the poll loop before the program exits so no new poll starts
// and the one in flight is killed.
func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.opts.Cancel != nil {
		m.opts.Cancel()
	}
	return tea.Quit
}

func (m Model) pageSize() int {
	return TableHeight(m.height, m.view)
}

// reconcile clamps every panel's scroll to its current rows so nothing out
// of range is stored between updates.
func (m *Model) reconcile() {
	var snapRows [panelCount]int
	if m.update != nil && m.update.Snapshot != nil {
		for p := Panel(0); p < panelCount; p++ {
			snapRows[p] = len(buildRows(m.update.Snapshot, m.view, p, m.now))
		}
	}
	m.view.Reconcile(snapRows, m.pageSize())
}

// waitCmd blocks until the Store publishes, or returns nil once ctx ends.
func (m Model) waitCmd() tea.Cmd {
	store, ctx := m.opts.Store, m.ctx
	if store == nil || ctx == nil {
		return nil
	}
	return func() tea.Msg {
		u, err := store.Wait(ctx)
		if err != nil {
			return nil
		}
		return updateMsg{update: u}
	}
}

func (m Model) clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
