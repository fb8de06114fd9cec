package monitor

import (
	"cmp"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// column describes one table column. desc is the direction picked when
// CycleSort lands on the column.
type column struct {
	title   string
	numeric bool
	desc    bool
	// flex columns take whatever width is left over.
	flex bool
}

var nodeColumns = []column{
	{title: "NODE"},
	{title: "STATE"},
	{title: "GPU"},
	{title: "FREE", numeric: true, desc: true},
	{title: "ALLOC", numeric: true, desc: true},
	{title: "TOTAL", numeric: true, desc: true},
	{title: "CPU", numeric: true, desc: true},
	{title: "MEM", numeric: true, desc: true},
	{title: "JOBS", numeric: true, desc: true},
	{title: "PARTITIONS", flex: true},
}

var jobColumns = []column{
	{title: "JOBID", numeric: true},
	{title: "NAME"},
	{title: "USER"},
	{title: "STATE"},
	{title: "PARTITION"},
	{title: "GPUS", numeric: true, desc: true},
	{title: "AGE", numeric: true, desc: true},
	{title: "NODES / REASON", flex: true},
}

var partitionColumns = []column{
	{title: "PARTITION"},
	{title: "STATE"},
	{title: "FREE", numeric: true, desc: true},
	{title: "ALLOC", numeric: true, desc: true},
	{title: "TOTAL", numeric: true, desc: true},
	{title: "NODES", numeric: true, desc: true},
	{title: "RUNNING", numeric: true, desc: true},
	{title: "PENDING", numeric: true, desc: true, flex: true},
}

func columnsFor(p Panel) []column {
	switch p {
	case PanelJobs:
		return jobColumns
	case PanelPartitions:
		return partitionColumns
	default:
		return nodeColumns
	}
}

// sortKey is the comparable value behind a cell.
type sortKey struct {
	num  int
	text string
}

// row is one line of a panel table. Group header rows in the node table
// point at their partition.
type row struct {
	kind   cluster.Kind
	id     string
	cells  []string
	keys   []sortKey
	free   int
	header bool
}

// buildRows runs the table pipeline for one panel: build, filter, sort and
// (for nodes) group. Scroll clamping happens in the renderer.
func buildRows(snap *cluster.Snapshot, v ViewState, p Panel, now time.Time) []row {
	if snap == nil {
		return nil
	}

	var rows []row
	switch p {
	case PanelNodes:
		for _, n := range snap.Nodes() {
			if v.FreeOnly && n.GPUFree().Or(0) == 0 {
				continue
			}
			rows = append(rows, nodeRow(n))
		}
	case PanelJobs:
		for _, j := range snap.Jobs() {
			rows = append(rows, jobRow(j, now))
		}
	case PanelPartitions:
		for _, part := range snap.Partitions() {
			rows = append(rows, partitionRow(part, snap.PartitionTotals(part.Name)))
		}
	}

	rows = filterRows(rows, v.Filter)
	sortRows(rows, columnsFor(p), v.Sort[p])

	if p == PanelNodes && v.GroupByPartition {
		rows = groupByPartition(rows, snap)
	}
	return rows
}

// filterRows keeps rows with a cell containing text, ignoring case.
func filterRows(rows []row, text string) []row {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return rows
	}

	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r.cells {
			if strings.Contains(strings.ToLower(c), text) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func sortRows(rows []row, cols []column, s Sort) {
	key := s.Key
	if key < 0 || key >= len(cols) {
		key = 0
	}
	numeric := cols[key].numeric

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].keys[key], rows[j].keys[key]
		var c int
		if numeric {
			c = cmp.Compare(a.num, b.num)
		} else {
			c = cluster.NaturalCompare(a.text, b.text)
		}
		if s.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return cluster.NaturalLess(rows[i].id, rows[j].id)
	})
}

// noPartition labels the group of nodes that claim no partition.
const noPartition = "(no partition)"

// groupByPartition puts every node row under a header row for each
// partition it belongs to, keeping the sorted order inside each group.
// Empty groups are left out.
func groupByPartition(rows []row, snap *cluster.Snapshot) []row {
	groups := map[string][]row{}
	for _, r := range rows {
		n, _ := snap.Node(r.id)
		if len(n.Partitions) == 0 {
			groups[noPartition] = append(groups[noPartition], r)
			continue
		}
		for _, ref := range n.Partitions {
			groups[ref.Name] = append(groups[ref.Name], r)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		if name != noPartition {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return cluster.NaturalLess(names[i], names[j]) })
	if _, ok := groups[noPartition]; ok {
		names = append(names, noPartition)
	}

	out := make([]row, 0, len(rows)+len(names))
	for _, name := range names {
		members := groups[name]
		out = append(out, groupHeaderRow(name, members, snap))
		out = append(out, members...)
	}
	return out
}

func groupHeaderRow(name string, members []row, snap *cluster.Snapshot) row {
	id := name
	if name == noPartition {
		id = ""
	}
	label := name
	if t := snap.PartitionTotals(id); id != "" && t.Nodes > 0 {
		label = fmt.Sprintf("%s  %d/%d GPUs free  %d nodes", name, t.GPUFree(), t.GPUTotal, t.Nodes)
	}
	if len(members) < snap.PartitionTotals(id).Nodes {
		label += fmt.Sprintf("  (%d shown)", len(members))
	}
	return row{kind: cluster.KindPartition, id: id, cells: []string{label}, header: true}
}

func nodeRow(n cluster.Node) row {
	free := n.GPUFree()
	partitions := strings.Join(cluster.RefNames(n.Partitions), ",")
	cpu := fmt.Sprintf("%s/%s", n.CPUAlloc, n.CPUTotal)
	if !n.CPUTotal.Valid && !n.CPUAlloc.Valid {
		cpu = "?"
	}
	state := nodeStateText(n)

	return row{
		kind: cluster.KindNode,
		id:   n.Name,
		cells: []string{
			n.Name,
			state,
			dashIfEmpty(n.GPUModel),
			free.String(),
			n.GPUAlloc.String(),
			n.GPUTotal.String(),
			cpu,
			formatMB(n.MemTotalMB),
			strconv.Itoa(len(n.Jobs)),
			partitions,
		},
		keys: []sortKey{
			{text: n.Name},
			{text: state},
			{text: n.GPUModel},
			{num: free.Or(-1)},
			{num: n.GPUAlloc.Or(-1)},
			{num: n.GPUTotal.Or(-1)},
			{num: n.CPUAlloc.Or(-1)},
			{num: n.MemTotalMB.Or(-1)},
			{num: len(n.Jobs)},
			{text: partitions},
		},
		free: free.Or(0),
	}
}

func jobRow(j cluster.Job, now time.Time) row {
	age, known := jobAge(j, now)
	ageText := "-"
	ageKey := -1
	if known {
		ageText = formatAge(age)
		ageKey = int(age / time.Second)
	}

	where := strings.Join(cluster.RefNames(j.Nodes), ",")
	if len(j.Nodes) == 0 && j.Reason != "" {
		where = "(" + j.Reason + ")"
	}
	id, err := strconv.Atoi(j.JobID)
	if err != nil {
		id = -1
	}

	return row{
		kind: cluster.KindJob,
		id:   j.JobID,
		cells: []string{
			j.JobID,
			dashIfEmpty(j.Name),
			dashIfEmpty(j.Owner),
			j.State.String(),
			dashIfEmpty(j.Partition),
			j.GPUs.String(),
			ageText,
			where,
		},
		keys: []sortKey{
			{num: id, text: j.JobID},
			{text: j.Name},
			{text: j.Owner},
			{text: j.State.String()},
			{text: j.Partition},
			{num: j.GPUs.Or(-1)},
			{num: ageKey},
			{text: where},
		},
	}
}

func partitionRow(p cluster.Partition, t cluster.Totals) row {
	name := p.Name
	if p.Default {
		name += "*"
	}
	state := p.State.String()
	if p.Synthesized {
		state = "-"
	}

	return row{
		kind: cluster.KindPartition,
		id:   p.Name,
		cells: []string{
			name,
			state,
			strconv.Itoa(t.GPUFree()),
			strconv.Itoa(t.GPUAlloc),
			strconv.Itoa(t.GPUTotal),
			strconv.Itoa(t.Nodes),
			strconv.Itoa(t.Running),
			strconv.Itoa(t.Pending),
		},
		keys: []sortKey{
			{text: p.Name},
			{text: state},
			{num: t.GPUFree()},
			{num: t.GPUAlloc},
			{num: t.GPUTotal},
			{num: t.Nodes},
			{num: t.Running},
			{num: t.Pending},
		},
		free: t.GPUFree(),
	}
}

// nodeStateText is the base state plus any flags the state does not
// already say, e.g. "MIXED+NOT_RESPONDING".
func nodeStateText(n cluster.Node) string {
	parts := []string{n.State.String()}
	for _, f := range n.StateFlags {
		if f != parts[0] {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "+")
}

// jobAge is how long a running job has run, or a pending job has waited.
func jobAge(j cluster.Job, now time.Time) (time.Duration, bool) {
	var since time.Time
	switch j.State.Kind {
	case cluster.JobPending:
		since = j.SubmitTime
	default:
		since = j.StartTime
	}
	if since.IsZero() || since.After(now) {
		return 0, false
	}
	return now.Sub(since), true
}

// formatAge renders a duration in squeue's compact style: 45s, 12m, 3h12m, 2d4h.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	default:
		days := int(d / (24 * time.Hour))
		return fmt.Sprintf("%dd%dh", days, int(d%(24*time.Hour)/time.Hour))
	}
}

// formatMB renders a megabyte count the way free -h does.
func formatMB(c cluster.Count) string {
	if !c.Valid {
		return "?"
	}
	return humanize.IBytes(uint64(max(c.Value, 0)) * 1024 * 1024)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
