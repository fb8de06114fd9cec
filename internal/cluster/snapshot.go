package cluster

import (
	"fmt"
	"sort"
	"time"

	"github.com/rileyhilliard/sgpu/internal/logger"
)

// AnomalyKind classifies a data-quality finding in a snapshot.
type AnomalyKind uint8

const (
	// DuplicateResource: two records share an identifier; the later one was kept.
	DuplicateResource AnomalyKind = iota + 1
	// OrphanedReference: a reference to a resource missing from the snapshot.
	OrphanedReference
	// GPUOverAllocation: allocated GPUs exceed the total.
	GPUOverAllocation
)

func (k AnomalyKind) String() string {
	switch k {
	case DuplicateResource:
		return "duplicate"
	case OrphanedReference:
		return "orphaned reference"
	case GPUOverAllocation:
		return "gpu over-allocation"
	}
	return "unknown"
}

// Anomaly is one data-quality finding. It never blocks snapshot assembly.
type Anomaly struct {
	Kind     AnomalyKind
	Resource Kind
	ID       string
	Detail   string
}

func (a Anomaly) String() string {
	if a.ID == "" {
		return fmt.Sprintf("%s: %s", a.Kind, a.Detail)
	}
	return fmt.Sprintf("%s %s: %s: %s", a.Resource, a.ID, a.Kind, a.Detail)
}

// Totals aggregates a set of nodes and jobs. GPUAlloc never exceeds GPUTotal.
type Totals struct {
	GPUTotal   int
	GPUAlloc   int
	Nodes      int
	Jobs       int
	Partitions int
	Running    int
	Pending    int
	Completing int
}

// GPUFree is GPUTotal minus GPUAlloc.
func (t Totals) GPUFree() int {
	return t.GPUTotal - t.GPUAlloc
}

// Snapshot is the cross-referenced cluster state from one successful poll.
// It is never modified after Build returns; accessors hand out copies of
// its top-level slices.
type Snapshot struct {
	capturedAt time.Time

	nodes      []Node
	jobs       []Job
	partitions []Partition

	nodeIdx      map[string]int
	jobIdx       map[string]int
	partitionIdx map[string]int

	partitionTotals map[string]Totals
	totals          Totals
	anomalies       []Anomaly
}

// Build assembles a Snapshot from decoded resources. It never fails:
// duplicates, dangling references and impossible GPU counts are recorded as
// anomalies, and over-allocation is logged at warn level.
func Build(resources []Resource, capturedAt time.Time, log logger.Logger) *Snapshot {
	if log == nil {
		log = logger.Noop()
	}

	b := &builder{
		snap: &Snapshot{capturedAt: capturedAt},
		log:  log,
	}
	nodes, jobs, partitions := b.dedupe(resources)

	b.linkPartitions(nodes, partitions)
	b.linkJobs(nodes, jobs)
	b.finish()

	return b.snap
}

type builder struct {
	snap *Snapshot
	log  logger.Logger

	nodes      map[string]*Node
	jobs       map[string]*Job
	partitions map[string]*Partition
}

func (b *builder) anomaly(a Anomaly) {
	b.snap.anomalies = append(b.snap.anomalies, a)
}

// dedupe keeps the last record for each identifier. Slices inside each
// record are copied so the snapshot never aliases decoder output.
func (b *builder) dedupe(resources []Resource) (map[string]*Node, map[string]*Job, map[string]*Partition) {
	b.nodes = make(map[string]*Node)
	b.jobs = make(map[string]*Job)
	b.partitions = make(map[string]*Partition)

	dup := func(kind Kind, id string) {
		b.anomaly(Anomaly{
			Kind:     DuplicateResource,
			Resource: kind,
			ID:       id,
			Detail:   "reported more than once; keeping the last record",
		})
	}

	for _, r := range resources {
		switch v := r.(type) {
		case Node:
			if _, ok := b.nodes[v.Name]; ok {
				dup(KindNode, v.Name)
			}
			n := v
			n.StateFlags = append([]string(nil), v.StateFlags...)
			n.Partitions = append([]Ref(nil), v.Partitions...)
			n.Jobs = nil
			b.nodes[v.Name] = &n
		case Job:
			if _, ok := b.jobs[v.JobID]; ok {
				dup(KindJob, v.JobID)
			}
			j := v
			j.Nodes = append([]Ref(nil), v.Nodes...)
			b.jobs[v.JobID] = &j
		case Partition:
			if _, ok := b.partitions[v.Name]; ok {
				dup(KindPartition, v.Name)
			}
			p := v
			p.Nodes = append([]Ref(nil), v.Nodes...)
			b.partitions[v.Name] = &p
		}
	}
	return b.nodes, b.jobs, b.partitions
}

// linkPartitions makes node and partition membership symmetric. A partition's
// members are the union of its own node list and the nodes that claim it.
// Without any partition records, partitions are synthesized from the nodes.
func (b *builder) linkPartitions(nodes map[string]*Node, partitions map[string]*Partition) {
	synthesize := len(partitions) == 0

	members := make(map[string]map[string]bool)
	addMember := func(partition, node string) {
		if members[partition] == nil {
			members[partition] = make(map[string]bool)
		}
		members[partition][node] = true
	}

	for _, name := range sortedKeys(nodes) {
		n := nodes[name]
		for i, ref := range n.Partitions {
			if _, ok := partitions[ref.Name]; !ok && synthesize {
				partitions[ref.Name] = &Partition{Name: ref.Name, Synthesized: true}
			}
			if _, ok := partitions[ref.Name]; !ok {
				n.Partitions[i].Orphaned = true
				b.anomaly(Anomaly{
					Kind:     OrphanedReference,
					Resource: KindNode,
					ID:       n.Name,
					Detail:   fmt.Sprintf("partition %s is not in the partition report", ref.Name),
				})
				continue
			}
			addMember(ref.Name, n.Name)
		}
	}

	for _, pname := range sortedKeys(partitions) {
		p := partitions[pname]
		for _, ref := range p.Nodes {
			n, ok := nodes[ref.Name]
			if !ok {
				continue
			}
			if !members[pname][ref.Name] {
				n.Partitions = append(n.Partitions, Ref{Name: pname})
			}
			addMember(pname, ref.Name)
		}

		var refs []Ref
		seen := make(map[string]bool)
		for _, ref := range p.Nodes {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			if _, ok := nodes[ref.Name]; !ok {
				refs = append(refs, Ref{Name: ref.Name, Orphaned: true})
				b.anomaly(Anomaly{
					Kind:     OrphanedReference,
					Resource: KindPartition,
					ID:       pname,
					Detail:   fmt.Sprintf("node %s is not in the node report", ref.Name),
				})
			}
		}
		for node := range members[pname] {
			refs = append(refs, Ref{Name: node})
		}
		p.Nodes = sortRefs(refs)
	}

	for _, n := range nodes {
		n.Partitions = sortRefs(n.Partitions)
	}
}

// linkJobs resolves each job's node list and records the job on its nodes.
func (b *builder) linkJobs(nodes map[string]*Node, jobs map[string]*Job) {
	for _, id := range sortedKeys(jobs) {
		j := jobs[id]
		for i, ref := range j.Nodes {
			n, ok := nodes[ref.Name]
			if !ok {
				j.Nodes[i].Orphaned = true
				b.anomaly(Anomaly{
					Kind:     OrphanedReference,
					Resource: KindJob,
					ID:       j.JobID,
					Detail:   fmt.Sprintf("node %s is not in the node report", ref.Name),
				})
				continue
			}
			j.Nodes[i].Orphaned = false
			n.Jobs = append(n.Jobs, Ref{Name: j.JobID})
		}
	}
	for _, n := range nodes {
		n.Jobs = sortRefs(n.Jobs)
	}
}

// finish freezes the maps into sorted slices, builds indices and totals.
func (b *builder) finish() {
	s := b.snap

	s.nodes = make([]Node, 0, len(b.nodes))
	for _, name := range sortedKeys(b.nodes) {
		s.nodes = append(s.nodes, *b.nodes[name])
	}
	s.jobs = make([]Job, 0, len(b.jobs))
	for _, id := range sortedKeys(b.jobs) {
		s.jobs = append(s.jobs, *b.jobs[id])
	}
	s.partitions = make([]Partition, 0, len(b.partitions))
	for _, name := range sortedKeys(b.partitions) {
		s.partitions = append(s.partitions, *b.partitions[name])
	}

	s.nodeIdx = make(map[string]int, len(s.nodes))
	for i, n := range s.nodes {
		s.nodeIdx[n.Name] = i
	}
	s.jobIdx = make(map[string]int, len(s.jobs))
	for i, j := range s.jobs {
		s.jobIdx[j.JobID] = i
	}
	s.partitionIdx = make(map[string]int, len(s.partitions))
	for i, p := range s.partitions {
		s.partitionIdx[p.Name] = i
	}

	b.checkAllocation(s.nodes)
	s.totals = sumTotals(s.nodes, s.jobs)
	s.totals.Partitions = len(s.partitions)

	s.partitionTotals = make(map[string]Totals, len(s.partitions))
	for _, p := range s.partitions {
		members := make([]Node, 0, len(p.Nodes))
		for _, ref := range p.Nodes {
			if i, ok := s.nodeIdx[ref.Name]; ok {
				members = append(members, s.nodes[i])
			}
		}
		var jobs []Job
		for _, j := range s.jobs {
			if j.Partition == p.Name {
				jobs = append(jobs, j)
			}
		}
		s.partitionTotals[p.Name] = sumTotals(members, jobs)
	}
}

// checkAllocation records every node reporting more allocated GPUs than it has.
func (b *builder) checkAllocation(nodes []Node) {
	for _, n := range nodes {
		if n.GPUTotal.Valid && n.GPUAlloc.Valid && n.GPUAlloc.Value > n.GPUTotal.Value {
			detail := fmt.Sprintf("%d GPUs allocated but only %d exist", n.GPUAlloc.Value, n.GPUTotal.Value)
			b.anomaly(Anomaly{Kind: GPUOverAllocation, Resource: KindNode, ID: n.Name, Detail: detail})
			b.log.Warn("node %s: %s", n.Name, detail)
		}
	}
}

// sumTotals adds up nodes and jobs. Each node contributes at most its own
// total to GPUAlloc. Unknown counts contribute 0.
func sumTotals(nodes []Node, jobs []Job) Totals {
	t := Totals{Nodes: len(nodes), Jobs: len(jobs)}
	for _, n := range nodes {
		total := n.GPUTotal.Or(0)
		t.GPUTotal += total
		t.GPUAlloc += max(0, min(n.GPUAlloc.Or(0), total))
	}
	countJobs(&t, jobs)
	return t
}

func countJobs(t *Totals, jobs []Job) {
	for _, j := range jobs {
		switch j.State.Kind {
		case JobRunning:
			t.Running++
		case JobPending:
			t.Pending++
		case JobCompleting:
			t.Completing++
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return NaturalLess(keys[i], keys[j]) })
	return keys
}

// sortRefs orders refs by name and drops repeats of the same name.
func sortRefs(refs []Ref) []Ref {
	sort.SliceStable(refs, func(i, j int) bool { return NaturalLess(refs[i].Name, refs[j].Name) })
	out := refs[:0]
	for _, r := range refs {
		if len(out) > 0 && r.Name == out[len(out)-1].Name {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CapturedAt is when the poll that produced the snapshot finished.
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Nodes returns all nodes sorted by name.
func (s *Snapshot) Nodes() []Node { return append([]Node(nil), s.nodes...) }

// Jobs returns all jobs sorted by id.
func (s *Snapshot) Jobs() []Job { return append([]Job(nil), s.jobs...) }

// Partitions returns all partitions sorted by name.
func (s *Snapshot) Partitions() []Partition { return append([]Partition(nil), s.partitions...) }

// Anomalies returns the data-quality findings from assembly.
func (s *Snapshot) Anomalies() []Anomaly { return append([]Anomaly(nil), s.anomalies...) }

// Totals returns cluster-wide counts.
func (s *Snapshot) Totals() Totals { return s.totals }

// PartitionTotals returns counts over one partition's member nodes and the
// jobs submitted to it.
func (s *Snapshot) PartitionTotals(name string) Totals { return s.partitionTotals[name] }

// Node looks up a node by name.
func (s *Snapshot) Node(name string) (Node, bool) {
	i, ok := s.nodeIdx[name]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Job looks up a job by id.
func (s *Snapshot) Job(id string) (Job, bool) {
	i, ok := s.jobIdx[id]
	if !ok {
		return Job{}, false
	}
	return s.jobs[i], true
}

// Partition looks up a partition by name.
func (s *Snapshot) Partition(name string) (Partition, bool) {
	i, ok := s.partitionIdx[name]
	if !ok {
		return Partition{}, false
	}
	return s.partitions[i], true
}

// JobsOnNode returns the jobs allocated to a node, sorted by id.
func (s *Snapshot) JobsOnNode(name string) []Job {
	n, ok := s.Node(name)
	if !ok {
		return nil
	}
	jobs := make([]Job, 0, len(n.Jobs))
	for _, ref := range n.Jobs {
		if j, ok := s.Job(ref.Name); ok {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// NodesInPartition returns the partition's member nodes that exist in the
// snapshot, sorted by name.
func (s *Snapshot) NodesInPartition(name string) []Node {
	p, ok := s.Partition(name)
	if !ok {
		return nil
	}
	nodes := make([]Node, 0, len(p.Nodes))
	for _, ref := range p.Nodes {
		if n, ok := s.Node(ref.Name); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
