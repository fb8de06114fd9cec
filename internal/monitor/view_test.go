package monitor

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) Frame {
	t.Helper()
	return Frame{
		Update:   testUpdate(t),
		Width:    160,
		Height:   30,
		Now:      testNow.Add(3 * time.Second),
		Interval: 5 * time.Second,
		Source:   "replay cluster.txt",
	}
}

func TestRender_ZeroSize(t *testing.T) {
	f := testFrame(t)

	for _, size := range [][2]int{{0, 0}, {0, 30}, {160, 0}, {-1, 10}} {
		f.Width, f.Height = size[0], size[1]
		assert.Empty(t, Render(f))
	}
}

func TestRender_Dashboard(t *testing.T) {
	out := Render(testFrame(t))

	assert.Contains(t, out, "sgpu")
	assert.Contains(t, out, "replay cluster.txt")
	assert.Contains(t, out, "10/16")
	assert.Contains(t, out, "4 nodes")
	assert.Contains(t, out, "3 jobs (2 running, 1 pending)")
	assert.Contains(t, out, "updated 3 seconds ago")
	assert.Contains(t, out, "Nodes (4)")
	assert.Contains(t, out, "Jobs (3)")
	assert.Contains(t, out, "Partitions (3)")
	assert.Contains(t, out, "1 anomaly")
	assert.NotContains(t, out, "STALE")

	for _, name := range []string{"NODE", "FREE", "cpu01", "gpu01", "gpu02", "gpu10"} {
		assert.Contains(t, out, name)
	}
}

func TestRender_FitsTerminal(t *testing.T) {
	base := testFrame(t)
	views := []ViewState{
		{},
		{ShowDetail: true},
		{Panel: PanelJobs, ShowDetail: true},
		{GroupByPartition: true},
		{Filtering: true},
		{ShowHelp: true},
	}

	for _, size := range [][2]int{{160, 30}, {80, 24}, {40, 10}, {20, 6}, {10, 3}, {1, 1}} {
		for _, v := range views {
			f := base
			f.Width, f.Height, f.View = size[0], size[1], v

			out := Render(f)
			lines := strings.Split(out, "\n")
			assert.LessOrEqual(t, len(lines), f.Height, "size %v view %+v", size, v)
			for _, l := range lines {
				assert.LessOrEqual(t, lipgloss.Width(l), f.Width, "size %v view %+v: %q", size, v, l)
			}
		}
	}
}

func TestRender_StaleBanner(t *testing.T) {
	f := testFrame(t)
	f.Update = &poll.Update{
		Snapshot:            f.Update.Snapshot,
		Stale:               true,
		Err:                 errors.New(errors.ErrExec, "status command exited with code 1", "check the login node"),
		ConsecutiveFailures: 3,
		At:                  testNow.Add(40 * time.Second),
	}
	f.Now = testNow.Add(40 * time.Second)

	out := Render(f)
	assert.Contains(t, out, "STALE: status command exited with code 1")
	assert.Contains(t, out, "3 failed polls")
	assert.Contains(t, out, "showing data from 40 seconds ago")
	assert.Contains(t, out, "gpu01", "stale data stays on screen")
}

func TestRender_StaleWithoutSnapshot(t *testing.T) {
	f := testFrame(t)
	f.Update = &poll.Update{Stale: true, Err: stderrors.New("connection refused"), ConsecutiveFailures: 1}

	out := Render(f)
	assert.Contains(t, out, "STALE: connection refused")
	assert.Contains(t, out, "1 failed poll")
	assert.Contains(t, out, "No data")
	assert.Contains(t, out, "No poll has succeeded yet")
}

func TestRender_BeforeFirstPoll(t *testing.T) {
	f := testFrame(t)
	f.Update = nil

	out := Render(f)
	assert.Contains(t, out, "waiting for first poll")
	assert.Contains(t, out, "No data")
}

func TestRender_ParseWarnings(t *testing.T) {
	f := testFrame(t)
	f.Update.Warnings = []error{stderrors.New("a"), stderrors.New("b")}

	assert.Contains(t, Render(f), "2 parse warnings")
}

func TestRender_HealthyStatus(t *testing.T) {
	f := testFrame(t)
	f.Update.Snapshot = snapshotFrom(t, "NodeName=gpu01 Gres=gpu:4 GresUsed=gpu:1\n")

	assert.Contains(t, Render(f), "polled in 40ms")
}

// Filtering, sorting and clamping an empty result renders "no data" for any
// view state.
func TestRender_EmptyResultAnyViewState(t *testing.T) {
	f := testFrame(t)

	for p := Panel(0); p < panelCount; p++ {
		for key := -1; key <= len(columnsFor(p)); key++ {
			for _, scroll := range []Scroll{{}, {Cursor: cursorEnd, Offset: cursorEnd}, {Cursor: -5, Offset: 7}} {
				for _, toggles := range []ViewState{{}, {ShowDetail: true}, {GroupByPartition: true, FreeOnly: true}} {
					v := toggles
					v.Panel = p
					v.Filter = "matches-nothing"
					v.Scroll[p] = scroll
					v.Sort[p] = Sort{Key: key, Desc: key%2 == 0}
					f.View = v

					var out string
					require.NotPanics(t, func() { out = Render(f) })
					assert.Contains(t, out, "No data")
					assert.Contains(t, out, "Nothing matches the current filter")
				}
			}
		}
	}
}

func TestRender_EmptySnapshot(t *testing.T) {
	f := testFrame(t)
	f.Update.Snapshot = snapshotFrom(t, "NodeName=gpu01 Gres=gpu:4\n")
	f.View.Panel = PanelJobs

	out := Render(f)
	assert.Contains(t, out, "No data")
	assert.Contains(t, out, "The cluster reported no jobs")
}

func TestRender_ScrollsToCursor(t *testing.T) {
	var text strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&text, "NodeName=n%02d Gres=gpu:8\n", i)
	}

	f := testFrame(t)
	f.Update.Snapshot = snapshotFrom(t, text.String())
	f.Height = 15
	f.View.Scroll[PanelNodes] = Scroll{Cursor: cursorEnd}

	out := Render(f)
	assert.Contains(t, out, "n51")
	assert.Contains(t, out, "n60")
	assert.NotContains(t, out, "n50")
	assert.NotContains(t, out, "n01")
}

func TestRender_DetailForJobShowsOrphans(t *testing.T) {
	f := testFrame(t)
	f.View.Panel = PanelJobs
	f.View.ShowDetail = true
	f.View.Scroll[PanelJobs] = Scroll{Cursor: 1}

	out := Render(f)
	assert.Contains(t, out, "job 101")
	assert.Contains(t, out, "gpu99  not in the node report")
	assert.Contains(t, out, "gpu10")
}

func TestRender_DetailForNodeListsJobs(t *testing.T) {
	f := testFrame(t)
	f.View.ShowDetail = true
	f.View.Scroll[PanelNodes] = Scroll{Cursor: 1}

	out := Render(f)
	assert.Contains(t, out, "node gpu01")
	assert.Contains(t, out, "2/4 allocated, 2 free")
	assert.Contains(t, out, "Jobs (1)")
	assert.Contains(t, out, "train")
}

func TestRender_DetailForGroupHeader(t *testing.T) {
	f := testFrame(t)
	f.View.ShowDetail = true
	f.View.GroupByPartition = true
	f.View.Scroll[PanelNodes] = Scroll{Cursor: 2}

	out := Render(f)
	assert.Contains(t, out, "partition debug")
	assert.Contains(t, out, "UP, default")
}

func TestRender_HelpOverlay(t *testing.T) {
	f := testFrame(t)
	f.View.ShowHelp = true

	out := Render(f)
	assert.Contains(t, out, "Keyboard Shortcuts")
	assert.Contains(t, out, "group by partition")
	assert.Contains(t, out, "free GPUs only")
	assert.NotContains(t, out, "gpu01")
}

func TestRender_Footer(t *testing.T) {
	f := testFrame(t)
	assert.Contains(t, Render(f), "? help")

	f.View.Filtering = true
	f.View.Filter = "a100"
	f.FilterInput = "/a100"
	out := Render(f)
	assert.Contains(t, out, "filter /a100")
	assert.Contains(t, out, `filter "a100"`)
}

func TestRender_TabsShowSortAndToggles(t *testing.T) {
	f := testFrame(t)
	f.View.Sort[PanelNodes] = Sort{Key: 3, Desc: true}
	f.View.FreeOnly = true
	f.View.GroupByPartition = true

	out := Render(f)
	assert.Contains(t, out, "sort FREE ↓")
	assert.Contains(t, out, "free only")
	assert.Contains(t, out, "grouped")
}

func TestRender_DoesNotMutateInputs(t *testing.T) {
	f := testFrame(t)
	f.View.ShowDetail = true
	f.View.GroupByPartition = true
	f.View.Filter = "gpu"
	f.View.Scroll[PanelNodes] = Scroll{Cursor: cursorEnd, Offset: 99}

	view := f.View
	nodes := f.Update.Snapshot.Nodes()
	jobs := f.Update.Snapshot.Jobs()

	Render(f)

	assert.Equal(t, view, f.View)
	assert.Equal(t, nodes, f.Update.Snapshot.Nodes())
	assert.Equal(t, jobs, f.Update.Snapshot.Jobs())
}

func TestTableHeight(t *testing.T) {
	assert.Equal(t, 25, TableHeight(30, ViewState{}))
	assert.Equal(t, 13, TableHeight(30, ViewState{ShowDetail: true}))
	assert.Equal(t, 1, TableHeight(3, ViewState{}))
	assert.Equal(t, 1, TableHeight(0, ViewState{ShowDetail: true}))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▰▰▰▰▰▱▱▱▱▱", ProgressBar(10, 50))
	assert.Equal(t, "▱▱▱▱", ProgressBar(4, -10))
	assert.Equal(t, "▰▰▰▰", ProgressBar(4, 250))
	assert.Equal(t, "▱", ProgressBar(0, 0))
}

func TestMetricColor(t *testing.T) {
	assert.Equal(t, ColorHealthy, MetricColor(10))
	assert.Equal(t, ColorWarning, MetricColor(70))
	assert.Equal(t, ColorCritical, MetricColor(95))
}

func TestAllocPercent(t *testing.T) {
	assert.Equal(t, 0.0, AllocPercent(3, 0))
	assert.Equal(t, 50.0, AllocPercent(2, 4))
}
