package parsers

import (
	"strings"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// stateMarkers are the single-character suffixes scontrol and sinfo append to
// a node state (not responding, powered down, powering up, ...).
const stateMarkers = "*~#!%$@^-"

var nodeStates = map[string]cluster.NodeStateKind{
	"IDLE":      cluster.NodeIdle,
	"ALLOCATED": cluster.NodeAllocated,
	"ALLOC":     cluster.NodeAllocated,
	"MIXED":     cluster.NodeMixed,
	"MIX":       cluster.NodeMixed,
	"DOWN":      cluster.NodeDown,
	"DRAIN":     cluster.NodeDrain,
	"DRAINED":   cluster.NodeDrain,
	"DRAINING":  cluster.NodeDrain,
	"DRNG":      cluster.NodeDrain,
}

// ParseNodeState splits "MIXED+DRAIN*" into the base state and its flags
// ("DRAIN", "*"). A DRAIN flag on a node that is not down makes it Drain.
func ParseNodeState(s string) (cluster.NodeState, []string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return cluster.NodeState{}, nil
	}

	var flags []string
	parts := strings.Split(s, "+")
	for i, part := range parts {
		trimmed := strings.TrimRight(part, stateMarkers)
		for _, m := range part[len(trimmed):] {
			flags = appendUnique(flags, string(m))
		}
		parts[i] = strings.ToUpper(trimmed)
		if i > 0 && parts[i] != "" {
			flags = appendUnique(flags, parts[i])
		}
	}

	kind, ok := nodeStates[parts[0]]
	if !ok {
		return cluster.NodeState{Raw: s}, flags
	}
	if kind != cluster.NodeDown && kind != cluster.NodeDrain {
		for _, f := range flags {
			if f == "DRAIN" {
				kind = cluster.NodeDrain
				break
			}
		}
	}
	return cluster.NodeState{Kind: kind, Raw: s}, flags
}

var jobStates = map[string]cluster.JobStateKind{
	"RUNNING":    cluster.JobRunning,
	"R":          cluster.JobRunning,
	"PENDING":    cluster.JobPending,
	"PD":         cluster.JobPending,
	"COMPLETING": cluster.JobCompleting,
	"CG":         cluster.JobCompleting,
}

// ParseJobState maps a job state, keeping unrecognized values as raw text.
func ParseJobState(s string) cluster.JobState {
	s = strings.TrimSpace(s)
	if kind, ok := jobStates[strings.ToUpper(s)]; ok {
		return cluster.JobState{Kind: kind, Raw: s}
	}
	return cluster.JobState{Raw: s}
}

var partitionStates = map[string]cluster.PartitionStateKind{
	"UP":       cluster.PartitionUp,
	"DOWN":     cluster.PartitionDown,
	"DRAIN":    cluster.PartitionDrain,
	"INACTIVE": cluster.PartitionInactive,
}

// ParsePartitionState maps a partition state, keeping unrecognized values as
// raw text.
func ParsePartitionState(s string) cluster.PartitionState {
	s = strings.TrimSpace(s)
	if kind, ok := partitionStates[strings.ToUpper(s)]; ok {
		return cluster.PartitionState{Kind: kind, Raw: s}
	}
	return cluster.PartitionState{Raw: s}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
