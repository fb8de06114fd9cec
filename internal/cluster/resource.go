// Package cluster holds the typed view of a Slurm cluster: nodes, jobs and
// partitions as decoded from scontrol output, and the immutable Snapshot that
// cross-references them for one poll.
//
// Everything here tolerates incomplete data. Counts that could not be parsed
// are carried as unknown rather than zero, enum values the decoder does not
// recognize keep their raw text, and references between resources that do
// not resolve are kept and marked orphaned. The node and job reports come
// from separate commands and are not atomic with each other, so a job that
// names a node missing from the node report is normal, not an error.
package cluster

import (
	"strconv"
	"time"
)

// Kind identifies the resource type of a record.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNode
	KindJob
	KindPartition
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindJob:
		return "job"
	case KindPartition:
		return "partition"
	default:
		return "unknown"
	}
}

// Resource is one decoded record: a Node, Job or Partition value.
type Resource interface {
	Kind() Kind
	// ID is the identifier that is unique within a kind.
	ID() string
}

// Count is an integer field that may be unknown.
type Count struct {
	Value int
	Valid bool
}

// Known returns a valid Count.
func Known(n int) Count {
	return Count{Value: n, Valid: true}
}

// Or returns the value, or def when unknown.
func (c Count) Or(def int) int {
	if !c.Valid {
		return def
	}
	return c.Value
}

// String renders unknown counts as "?".
func (c Count) String() string {
	if !c.Valid {
		return "?"
	}
	return strconv.Itoa(c.Value)
}

// Ref points at another resource by identifier. Orphaned is set when the
// target is not part of the same Snapshot.
type Ref struct {
	Name     string
	Orphaned bool
}

// RefNames returns the names of refs in order.
func RefNames(refs []Ref) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

// Node is one compute node from `scontrol show nodes`.
type Node struct {
	Name       string
	State      NodeState
	StateFlags []string
	GPUTotal   Count
	GPUAlloc   Count
	GPUModel   string
	CPUTotal   Count
	CPUAlloc   Count
	MemTotalMB Count
	MemAllocMB Count
	Partitions []Ref
	// Jobs is filled during snapshot assembly from the job report.
	Jobs   []Ref
	Reason string
}

func (n Node) Kind() Kind { return KindNode }
func (n Node) ID() string { return n.Name }

// GPUFree is total minus allocated, never negative. Unknown when the total is.
func (n Node) GPUFree() Count {
	if !n.GPUTotal.Valid {
		return Count{}
	}
	free := n.GPUTotal.Value - n.GPUAlloc.Or(0)
	if free < 0 {
		free = 0
	}
	return Known(free)
}

// HasFlag reports whether the state carries flag (e.g. "DRAIN").
func (n Node) HasFlag(flag string) bool {
	for _, f := range n.StateFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Job is one job from `scontrol show jobs`.
type Job struct {
	JobID     string
	Name      string
	State     JobState
	Owner     string
	Partition string
	GPUs      Count
	Nodes     []Ref
	// SubmitTime and StartTime are zero when unknown.
	SubmitTime time.Time
	StartTime  time.Time
	Reason     string
}

func (j Job) Kind() Kind { return KindJob }
func (j Job) ID() string { return j.JobID }

// Partition is one partition from `scontrol show partitions`, or one
// synthesized from node membership when that report is missing.
type Partition struct {
	Name        string
	State       PartitionState
	Nodes       []Ref
	Default     bool
	Synthesized bool
}

func (p Partition) Kind() Kind { return KindPartition }
func (p Partition) ID() string { return p.Name }
