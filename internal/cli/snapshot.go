package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/rileyhilliard/sgpu/internal/cluster/parsers"
	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/poll"
	"github.com/rileyhilliard/sgpu/internal/source"
	"github.com/rileyhilliard/sgpu/internal/ui"
	"github.com/rileyhilliard/sgpu/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// snapshotOutput is bound to --output.
var snapshotOutput string

// maxCellWidth caps table columns so long node lists don't wrap.
const maxCellWidth = 40

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Poll the cluster once and print the result",
	Long: `Run the status commands once and print nodes, partitions and jobs.

Exits with status 1 when the poll fails, which makes it usable from
scripts and cron jobs.

Examples:
  sgpu snapshot
  sgpu snapshot --output json | jq '.data.totals'
  sgpu snapshot --replay capture.txt --output yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd.Context(), sourceFlags, snapshotOutput, cmd.OutOrStdout())
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", OutputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(snapshotCmd)
}

// SnapshotReport is the machine-readable form of one poll.
type SnapshotReport struct {
	Source     string            `json:"source" yaml:"source"`
	CapturedAt time.Time         `json:"captured_at" yaml:"captured_at"`
	Took       string            `json:"took" yaml:"took"`
	Totals     TotalsReport      `json:"totals" yaml:"totals"`
	Nodes      []NodeReport      `json:"nodes" yaml:"nodes"`
	Partitions []PartitionReport `json:"partitions" yaml:"partitions"`
	Jobs       []JobReport       `json:"jobs" yaml:"jobs"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Anomalies  []string          `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// TotalsReport summarizes the cluster.
type TotalsReport struct {
	GPUTotal   int `json:"gpu_total" yaml:"gpu_total"`
	GPUAlloc   int `json:"gpu_alloc" yaml:"gpu_alloc"`
	GPUFree    int `json:"gpu_free" yaml:"gpu_free"`
	Nodes      int `json:"nodes" yaml:"nodes"`
	Partitions int `json:"partitions" yaml:"partitions"`
	Jobs       int `json:"jobs" yaml:"jobs"`
	Running    int `json:"running" yaml:"running"`
	Pending    int `json:"pending" yaml:"pending"`
}

// NodeReport is one node. Unknown counts are null.
type NodeReport struct {
	Name       string   `json:"name" yaml:"name"`
	State      string   `json:"state" yaml:"state"`
	Flags      []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	GPUModel   string   `json:"gpu_model,omitempty" yaml:"gpu_model,omitempty"`
	GPUTotal   *int     `json:"gpu_total" yaml:"gpu_total"`
	GPUAlloc   *int     `json:"gpu_alloc" yaml:"gpu_alloc"`
	GPUFree    *int     `json:"gpu_free" yaml:"gpu_free"`
	CPUTotal   *int     `json:"cpu_total" yaml:"cpu_total"`
	CPUAlloc   *int     `json:"cpu_alloc" yaml:"cpu_alloc"`
	MemTotalMB *int     `json:"mem_total_mb" yaml:"mem_total_mb"`
	MemAllocMB *int     `json:"mem_alloc_mb" yaml:"mem_alloc_mb"`
	Partitions []string `json:"partitions" yaml:"partitions"`
	Jobs       []string `json:"jobs" yaml:"jobs"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PartitionReport is one partition with its GPU totals.
type PartitionReport struct {
	Name        string   `json:"name" yaml:"name"`
	State       string   `json:"state" yaml:"state"`
	Default     bool     `json:"default" yaml:"default"`
	Synthesized bool     `json:"synthesized,omitempty" yaml:"synthesized,omitempty"`
	GPUTotal    int      `json:"gpu_total" yaml:"gpu_total"`
	GPUAlloc    int      `json:"gpu_alloc" yaml:"gpu_alloc"`
	GPUFree     int      `json:"gpu_free" yaml:"gpu_free"`
	Nodes       []string `json:"nodes" yaml:"nodes"`
}

// JobReport is one job.
type JobReport struct {
	JobID      string     `json:"job_id" yaml:"job_id"`
	Name       string     `json:"name" yaml:"name"`
	User       string     `json:"user" yaml:"user"`
	State      string     `json:"state" yaml:"state"`
	Partition  string     `json:"partition" yaml:"partition"`
	GPUs       *int       `json:"gpus" yaml:"gpus"`
	Nodes      []string   `json:"nodes" yaml:"nodes"`
	SubmitTime *time.Time `json:"submit_time,omitempty" yaml:"submit_time,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	Reason     string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// snapshotCommand polls once and writes the result to w in format.
func snapshotCommand(ctx context.Context, flags SourceFlags, format string, w io.Writer) error {
	if err := validateOutput(format); err != nil {
		return err
	}

	cfg, _, err := loadConfig(flags)
	if err != nil {
		return failSnapshot(w, format, err)
	}

	log := logger.NewEnvLogger("[snapshot]")
	if cfg.LogFile != "" {
		fl, closeLog, err := openLog(cfg.LogFile)
		if err != nil {
			return failSnapshot(w, format, err)
		}
		defer closeLog()
		log = fl
	}

	src := source.New(cfg, log)
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	var spin *ui.Spinner
	if format == OutputTable && term.IsTerminal(int(os.Stderr.Fd())) {
		spin = ui.NewSpinner(os.Stderr, "Polling "+src.Describe())
	}
	return runSnapshot(ctx, cfg, src, format, w, log, spin)
}

// runSnapshot is snapshotCommand after setup. spin may be nil.
func runSnapshot(ctx context.Context, cfg *config.Config, src source.Source, format string, w io.Writer, log logger.Logger, spin *ui.Spinner) error {
	p := poll.New(src, poll.NewStore(), poll.Options{
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
		Decode:   parsers.Options{Gres: cfg.Gres},
	}, log)

	if spin != nil {
		spin.Start()
	}
	u := p.PollOnce(ctx)
	if u.Err != nil {
		if spin != nil {
			spin.Fail(errors.Summary(u.Err))
		}
		return failSnapshot(w, format, pollError(u.Err))
	}
	if spin != nil {
		spin.Success(u.Took.Round(time.Millisecond).String())
	}

	report := NewSnapshotReport(src.Describe(), u)
	switch format {
	case OutputJSON:
		return WriteJSONSuccess(w, report)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return errors.WrapWithCode(err, errors.ErrExec, "Failed to write YAML", "")
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderSnapshotTables(u))
		return err
	}
}

func validateOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown output format %q", format),
		"Use --output table, json or yaml")
}

// failSnapshot reports err in the requested format. JSON callers get an
// error envelope on stdout and a bare exit status.
func failSnapshot(w io.Writer, format string, err error) error {
	if format != OutputJSON {
		return err
	}
	if werr := WriteJSONFromError(w, err); werr != nil {
		return err
	}
	return errors.NewExitError(1)
}

// pollError gives unstructured poll failures a code and a suggestion.
func pollError(err error) error {
	var sgErr *errors.Error
	if stderrors.As(err, &sgErr) {
		return err
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapWithCode(err, errors.ErrExec, "Poll interrupted", "")
	}
	return errors.WrapWithCode(err, errors.ErrExec,
		"Poll failed",
		"Check that scontrol works on the polled host, or try --replay with a captured file.")
}

// NewSnapshotReport converts a successful update into its report form.
func NewSnapshotReport(describe string, u *poll.Update) SnapshotReport {
	snap := u.Snapshot
	t := snap.Totals()

	r := SnapshotReport{
		Source:     describe,
		CapturedAt: snap.CapturedAt(),
		Took:       u.Took.Round(time.Millisecond).String(),
		Totals: TotalsReport{
			GPUTotal:   t.GPUTotal,
			GPUAlloc:   t.GPUAlloc,
			GPUFree:    t.GPUFree(),
			Nodes:      t.Nodes,
			Partitions: t.Partitions,
			Jobs:       t.Jobs,
			Running:    t.Running,
			Pending:    t.Pending,
		},
		Nodes:      []NodeReport{},
		Partitions: []PartitionReport{},
		Jobs:       []JobReport{},
	}

	for _, n := range snap.Nodes() {
		r.Nodes = append(r.Nodes, NodeReport{
			Name:       n.Name,
			State:      n.State.String(),
			Flags:      n.StateFlags,
			GPUModel:   n.GPUModel,
			GPUTotal:   countPtr(n.GPUTotal),
			GPUAlloc:   countPtr(n.GPUAlloc),
			GPUFree:    countPtr(n.GPUFree()),
			CPUTotal:   countPtr(n.CPUTotal),
			CPUAlloc:   countPtr(n.CPUAlloc),
			MemTotalMB: countPtr(n.MemTotalMB),
			MemAllocMB: countPtr(n.MemAllocMB),
			Partitions: cluster.RefNames(n.Partitions),
			Jobs:       cluster.RefNames(n.Jobs),
			Reason:     n.Reason,
		})
	}

	for _, p := range snap.Partitions() {
		pt := snap.PartitionTotals(p.Name)
		r.Partitions = append(r.Partitions, PartitionReport{
			Name:        p.Name,
			State:       p.State.String(),
			Default:     p.Default,
			Synthesized: p.Synthesized,
			GPUTotal:    pt.GPUTotal,
			GPUAlloc:    pt.GPUAlloc,
			GPUFree:     pt.GPUFree(),
			Nodes:       cluster.RefNames(p.Nodes),
		})
	}

	for _, j := range snap.Jobs() {
		r.Jobs = append(r.Jobs, JobReport{
			JobID:      j.JobID,
			Name:       j.Name,
			User:       j.Owner,
			State:      j.State.String(),
			Partition:  j.Partition,
			GPUs:       countPtr(j.GPUs),
			Nodes:      cluster.RefNames(j.Nodes),
			SubmitTime: timePtr(j.SubmitTime),
			StartTime:  timePtr(j.StartTime),
			Reason:     j.Reason,
		})
	}

	for _, w := range u.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	for _, a := range snap.Anomalies() {
		r.Anomalies = append(r.Anomalies, a.String())
	}
	return r
}

func countPtr(c cluster.Count) *int {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// renderSnapshotTables renders the human-readable snapshot.
func renderSnapshotTables(u *poll.Update) string {
	snap := u.Snapshot
	t := snap.Totals()
	var b strings.Builder

	fmt.Fprintf(&b, "%s GPUs allocated, %s free  %s  %s (%d running, %d pending)\n",
		ui.Heading(fmt.Sprintf("%d/%d", t.GPUAlloc, t.GPUTotal)),
		ui.Heading(fmt.Sprint(t.GPUFree())),
		util.Quantity(t.Nodes, "node", "nodes"),
		util.Quantity(t.Jobs, "job", "jobs"),
		t.Running, t.Pending)
	b.WriteString(ui.Muted("captured "+snap.CapturedAt().Format(time.DateTime)) + "\n")

	section := func(title string, titles []string, rows [][]string) {
		fmt.Fprintf(&b, "\n%s\n", ui.Heading(fmt.Sprintf("%s (%d)", title, len(rows))))
		if len(rows) == 0 {
			b.WriteString(ui.Muted("  none") + "\n")
			return
		}
		b.WriteString(ui.RenderSimpleTable(ui.AutoColumns(titles, rows, maxCellWidth), rows))
		b.WriteString("\n")
	}

	var nodes [][]string
	for _, n := range snap.Nodes() {
		nodes = append(nodes, []string{
			n.Name, n.State.String(), dash(n.GPUModel),
			n.GPUFree().String(), n.GPUAlloc.String(), n.GPUTotal.String(),
			formatMemMB(n.MemTotalMB),
			dash(strings.Join(cluster.RefNames(n.Partitions), ",")),
		})
	}
	section("Nodes", []string{"NODE", "STATE", "GPU", "FREE", "ALLOC", "TOTAL", "MEM", "PARTITIONS"}, nodes)

	var parts [][]string
	for _, p := range snap.Partitions() {
		pt := snap.PartitionTotals(p.Name)
		name := p.Name
		if p.Default {
			name += "*"
		}
		parts = append(parts, []string{
			name, p.State.String(),
			fmt.Sprint(pt.GPUFree()), fmt.Sprint(pt.GPUAlloc), fmt.Sprint(pt.GPUTotal),
			fmt.Sprint(pt.Nodes),
		})
	}
	section("Partitions", []string{"PARTITION", "STATE", "FREE", "ALLOC", "TOTAL", "NODES"}, parts)

	var jobs [][]string
	for _, j := range snap.Jobs() {
		where := strings.Join(cluster.RefNames(j.Nodes), ",")
		if where == "" && j.Reason != "" {
			where = "(" + j.Reason + ")"
		}
		jobs = append(jobs, []string{
			j.JobID, dash(j.Name), dash(j.Owner), j.State.String(), dash(j.Partition),
			j.GPUs.String(), dash(where),
		})
	}
	section("Jobs", []string{"JOBID", "NAME", "USER", "STATE", "PARTITION", "GPUS", "NODES / REASON"}, jobs)

	if n := len(u.Warnings); n > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.Warning(util.Quantity(n, "parse warning", "parse warnings")))
		for _, w := range u.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	if anomalies := snap.Anomalies(); len(anomalies) > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.Warning(util.Quantity(len(anomalies), "anomaly", "anomalies")))
		for _, a := range anomalies {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	return b.String()
}

func formatMemMB(c cluster.Count) string {
	if !c.Valid {
		return "?"
	}
	return humanize.IBytes(uint64(c.Value) << 20)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
