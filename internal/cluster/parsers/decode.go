package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// DefaultGres is the GRES name counted as GPUs.
const DefaultGres = "gpu"

// Options tune decoding.
type Options struct {
	// Gres is the GRES name to count, DefaultGres when empty.
	Gres string
	// Location interprets scontrol timestamps, time.Local when nil.
	Location *time.Location
}

func (o Options) gres() string {
	if o.Gres == "" {
		return DefaultGres
	}
	return o.Gres
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Decode turns one record into a resource with default options.
func Decode(rec RawRecord) (cluster.Resource, error) {
	return DecodeWith(rec, Options{})
}

// DecodeWith turns one record into a cluster.Node, cluster.Job or
// cluster.Partition. It fails only when the kind cannot be determined or the
// identifier is missing. Unreadable counts become unknown, unreadable times
// become zero, and unrecognized states keep their raw text.
func DecodeWith(rec RawRecord, opts Options) (cluster.Resource, error) {
	var present []string
	for _, key := range []string{KeyNodeName, KeyJobID, KeyPartitionName} {
		if rec.Has(key) {
			present = append(present, key)
		}
	}
	switch len(present) {
	case 0:
		return nil, &DecodeError{Line: rec.Line, Reason: "no NodeName, JobId or PartitionName field"}
	case 1:
	default:
		return nil, &DecodeError{
			Line:   rec.Line,
			Reason: fmt.Sprintf("conflicting identifier fields %s", strings.Join(present, ", ")),
		}
	}

	kind := rec.Kind()
	id := strings.TrimSpace(rec.Value(present[0]))
	if id == "" {
		return nil, &DecodeError{Line: rec.Line, Kind: kind, Reason: "missing " + present[0]}
	}

	switch kind {
	case cluster.KindNode:
		return decodeNode(rec, id, opts), nil
	case cluster.KindJob:
		return decodeJob(rec, id, opts), nil
	default:
		return decodePartition(rec, id), nil
	}
}

func decodeNode(rec RawRecord, name string, opts Options) cluster.Node {
	gresName := opts.gres()
	state, flags := ParseNodeState(rec.Value("State"))

	n := cluster.Node{
		Name:       name,
		State:      state,
		StateFlags: flags,
		CPUTotal:   parseCount(rec.Value("CPUTot")),
		CPUAlloc:   parseCount(rec.Value("CPUAlloc")),
		MemTotalMB: parseCount(rec.Value("RealMemory")),
		MemAllocMB: parseCount(rec.Value("AllocMem")),
		Reason:     optional(rec.Value("Reason")),
	}

	for _, p := range splitList(rec.Value("Partitions")) {
		n.Partitions = append(n.Partitions, cluster.Ref{Name: p})
	}

	gres, hasGres := rec.Get("Gres")
	cfg, hasCfg := rec.Get("CfgTRES")
	total := pick(parseGres(gres, gresName), parseTRES(cfg, gresName), hasGres || hasCfg)
	n.GPUTotal = total.count
	n.GPUModel = strings.Join(total.models, ",")

	used, hasUsed := rec.Get("GresUsed")
	alloc, hasAlloc := rec.Get("AllocTRES")
	n.GPUAlloc = pick(parseGres(used, gresName), parseTRES(alloc, gresName), hasUsed || hasAlloc).count

	return n
}

// pick prefers the GRES reading over the TRES one. When neither names the
// resource but one of the fields was reported, the node has none.
func pick(gres, tres gresCount, present bool) gresCount {
	switch {
	case gres.found:
		return gres
	case tres.found:
		return tres
	case present:
		return gresCount{count: cluster.Known(0)}
	}
	return gresCount{}
}

func decodeJob(rec RawRecord, id string, opts Options) cluster.Job {
	j := cluster.Job{
		JobID:      id,
		Name:       rec.Value("JobName"),
		State:      ParseJobState(rec.Value("JobState")),
		Owner:      parseOwner(rec.Value("UserId")),
		Partition:  rec.Value("Partition"),
		GPUs:       jobGPUs(rec, opts.gres()),
		SubmitTime: parseTime(rec.Value("SubmitTime"), opts.location()),
		StartTime:  parseTime(rec.Value("StartTime"), opts.location()),
		Reason:     optional(rec.Value("Reason")),
	}

	names, _ := expandHostlistLenient(rec.Value("NodeList"))
	for _, name := range names {
		j.Nodes = append(j.Nodes, cluster.Ref{Name: name})
	}
	return j
}

// jobGPUs tries each GPU-bearing field in order of precision: requested
// TRES, allocated TRES, per-node TRES times node count, per-job TRES, and
// the legacy Gres field times node count.
func jobGPUs(rec RawRecord, name string) cluster.Count {
	nodes := parseLeadingCount(rec.Value("NumNodes")).Or(1)
	anyField := false

	for _, key := range []string{"ReqTRES", "AllocTRES"} {
		v, ok := rec.Get(key)
		anyField = anyField || ok
		if res := parseTRES(v, name); res.found {
			return res.count
		}
	}

	if v, ok := rec.Get("TresPerNode"); ok {
		anyField = true
		if res := parseGres(v, name); res.found {
			return multiply(res.count, nodes)
		}
	}
	if v, ok := rec.Get("TresPerJob"); ok {
		anyField = true
		if res := parseGres(v, name); res.found {
			return res.count
		}
	}
	if v, ok := rec.Get("Gres"); ok {
		anyField = true
		if res := parseGres(v, name); res.found {
			return multiply(res.count, nodes)
		}
	}

	if anyField {
		return cluster.Known(0)
	}
	return cluster.Count{}
}

func multiply(c cluster.Count, n int) cluster.Count {
	if !c.Valid {
		return c
	}
	return cluster.Known(c.Value * n)
}

func decodePartition(rec RawRecord, name string) cluster.Partition {
	p := cluster.Partition{
		Name:    name,
		State:   ParsePartitionState(rec.Value("State")),
		Default: strings.EqualFold(rec.Value("Default"), "YES"),
	}
	names, _ := expandHostlistLenient(rec.Value("Nodes"))
	for _, n := range names {
		p.Nodes = append(p.Nodes, cluster.Ref{Name: n})
	}
	return p
}

// parseOwner strips the uid suffix: "alice(1001)" -> "alice".
func parseOwner(s string) string {
	name, rest, ok := strings.Cut(s, "(")
	if !ok || name != "" {
		return name
	}
	return strings.TrimSuffix(rest, ")")
}

// optional maps scontrol's placeholders to "".
func optional(s string) string {
	if isNullValue(s) {
		return ""
	}
	return s
}

// splitList splits a plain comma list, dropping empty and null items.
func splitList(s string) []string {
	if isNullValue(s) {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
