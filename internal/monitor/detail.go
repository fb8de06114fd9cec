package monitor

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/rileyhilliard/sgpu/internal/util"
)

// orphanMarker flags a reference to a resource missing from the snapshot.
const orphanMarker = "⚠"

// renderDetail draws the pane under the table for the selected row. It
// returns at most height lines.
func renderDetail(f Frame, snap *cluster.Snapshot, selected *row, height int) []string {
	if height <= 0 {
		return nil
	}
	if snap == nil || selected == nil {
		return []string{SectionRule("details", f.Width), MutedStyle.Render("  Nothing selected")}
	}

	var title string
	var body []string
	switch selected.kind {
	case cluster.KindNode:
		n, ok := snap.Node(selected.id)
		if !ok {
			return []string{SectionRule(selected.id, f.Width), MutedStyle.Render("  Node is no longer reported")}
		}
		title, body = "node "+n.Name, nodeDetail(n, snap)
	case cluster.KindJob:
		j, ok := snap.Job(selected.id)
		if !ok {
			return []string{SectionRule(selected.id, f.Width), MutedStyle.Render("  Job is no longer reported")}
		}
		title, body = "job "+j.JobID, jobDetail(j, snap, f.Now)
	case cluster.KindPartition:
		if selected.id == "" {
			title, body = noPartition, []string{MutedStyle.Render("  Nodes that claim no partition")}
			break
		}
		p, ok := snap.Partition(selected.id)
		if !ok {
			title, body = "partition "+selected.id, []string{OrphanStyle.Render("  " + orphanMarker + " not in the partition report")}
			break
		}
		title, body = "partition "+p.Name, partitionDetail(p, snap)
	}

	lines := append([]string{SectionRule(title, f.Width)}, body...)
	if len(lines) > height {
		more := len(lines) - height + 1
		lines = append(lines[:height-1], MutedStyle.Render(fmt.Sprintf("  ... %d more", more)))
	}
	return lines
}

func nodeDetail(n cluster.Node, snap *cluster.Snapshot) []string {
	lines := []string{
		field("State", nodeStateText(n)) + field("GPU model", dashIfEmpty(n.GPUModel)),
		field("GPUs", fmt.Sprintf("%s/%s allocated, %s free", n.GPUAlloc, n.GPUTotal, n.GPUFree())) +
			field("CPUs", fmt.Sprintf("%s/%s", n.CPUAlloc, n.CPUTotal)) +
			field("Memory", fmt.Sprintf("%s / %s", formatMB(n.MemAllocMB), formatMB(n.MemTotalMB))),
		field("Partitions", refList(n.Partitions)),
	}
	if n.Reason != "" {
		lines = append(lines, field("Reason", n.Reason))
	}
	if n.GPUAlloc.Valid && n.GPUTotal.Valid && n.GPUAlloc.Value > n.GPUTotal.Value {
		lines = append(lines, OrphanStyle.Render(fmt.Sprintf("  %s reports more GPUs allocated than installed", orphanMarker)))
	}

	jobs := snap.JobsOnNode(n.Name)
	if len(jobs) == 0 {
		return append(lines, MutedStyle.Render("  No jobs"))
	}
	lines = append(lines, LabelStyle.Render(fmt.Sprintf("  Jobs (%d)", len(jobs))))
	for _, j := range jobs {
		lines = append(lines, fmt.Sprintf("    %-10s %-10s %-10s %s GPUs  %s",
			j.JobID, j.State, dashIfEmpty(j.Owner), j.GPUs, j.Name))
	}
	return lines
}

func jobDetail(j cluster.Job, snap *cluster.Snapshot, now time.Time) []string {
	lines := []string{
		field("Name", dashIfEmpty(j.Name)) + field("User", dashIfEmpty(j.Owner)) + field("State", j.State.String()),
		field("Partition", dashIfEmpty(j.Partition)) + field("GPUs", j.GPUs.String()),
		field("Submitted", relTime(j.SubmitTime, now)) + field("Started", relTime(j.StartTime, now)),
	}
	if j.Reason != "" {
		lines = append(lines, field("Reason", j.Reason))
	}

	if len(j.Nodes) == 0 {
		return append(lines, MutedStyle.Render("  No nodes assigned"))
	}
	lines = append(lines, LabelStyle.Render(fmt.Sprintf("  Nodes (%d)", len(j.Nodes))))
	for _, ref := range j.Nodes {
		if ref.Orphaned {
			lines = append(lines, OrphanStyle.Render(fmt.Sprintf("    %s %s  not in the node report", orphanMarker, ref.Name)))
			continue
		}
		n, _ := snap.Node(ref.Name)
		lines = append(lines, fmt.Sprintf("    %-12s %-10s %s/%s GPUs allocated", n.Name, nodeStateText(n), n.GPUAlloc, n.GPUTotal))
	}
	return lines
}

func partitionDetail(p cluster.Partition, snap *cluster.Snapshot) []string {
	t := snap.PartitionTotals(p.Name)
	state := p.State.String()
	if p.Synthesized {
		state = "derived from node membership"
	}
	if p.Default {
		state += ", default"
	}

	lines := []string{
		field("State", state),
		field("GPUs", fmt.Sprintf("%d/%d allocated, %d free", t.GPUAlloc, t.GPUTotal, t.GPUFree())) +
			field("Jobs", fmt.Sprintf("%d running, %d pending", t.Running, t.Pending)),
		LabelStyle.Render(fmt.Sprintf("  Nodes (%d)", len(p.Nodes))),
	}
	for _, ref := range p.Nodes {
		if ref.Orphaned {
			lines = append(lines, OrphanStyle.Render(fmt.Sprintf("    %s %s  not in the node report", orphanMarker, ref.Name)))
			continue
		}
		n, _ := snap.Node(ref.Name)
		lines = append(lines, fmt.Sprintf("    %-12s %-10s %s free of %s", n.Name, nodeStateText(n), n.GPUFree(), n.GPUTotal))
	}
	return lines
}

func field(label, value string) string {
	return LabelStyle.Render("  "+label+": ") + ValueStyle.Render(value)
}

// refList joins refs, marking orphans.
func refList(refs []cluster.Ref) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
		if r.Orphaned {
			names[i] += " " + orphanMarker
		}
	}
	return util.JoinOrDefault(names, "-")
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
