package cluster

// NodeStateKind is the base scheduling state of a node.
type NodeStateKind uint8

const (
	NodeUnknown NodeStateKind = iota
	NodeIdle
	NodeAllocated
	NodeMixed
	NodeDown
	NodeDrain
)

// NodeState is a node state with the raw text kept for unknown values.
type NodeState struct {
	Kind NodeStateKind
	Raw  string
}

func (s NodeState) String() string {
	switch s.Kind {
	case NodeIdle:
		return "IDLE"
	case NodeAllocated:
		return "ALLOCATED"
	case NodeMixed:
		return "MIXED"
	case NodeDown:
		return "DOWN"
	case NodeDrain:
		return "DRAIN"
	}
	if s.Raw == "" {
		return "UNKNOWN"
	}
	return s.Raw
}

// Schedulable reports whether new jobs can land on the node.
func (s NodeState) Schedulable() bool {
	return s.Kind == NodeIdle || s.Kind == NodeMixed
}

// JobStateKind is the lifecycle state of a job.
type JobStateKind uint8

const (
	JobUnknown JobStateKind = iota
	JobRunning
	JobPending
	JobCompleting
)

// JobState is a job state with the raw text kept for unknown values.
type JobState struct {
	Kind JobStateKind
	Raw  string
}

func (s JobState) String() string {
	switch s.Kind {
	case JobRunning:
		return "RUNNING"
	case JobPending:
		return "PENDING"
	case JobCompleting:
		return "COMPLETING"
	}
	if s.Raw == "" {
		return "UNKNOWN"
	}
	return s.Raw
}

// PartitionStateKind is the availability of a partition.
type PartitionStateKind uint8

const (
	PartitionUnknown PartitionStateKind = iota
	PartitionUp
	PartitionDown
	PartitionDrain
	PartitionInactive
)

// PartitionState is a partition state with the raw text kept for unknown values.
type PartitionState struct {
	Kind PartitionStateKind
	Raw  string
}

func (s PartitionState) String() string {
	switch s.Kind {
	case PartitionUp:
		return "UP"
	case PartitionDown:
		return "DOWN"
	case PartitionDrain:
		return "DRAIN"
	case PartitionInactive:
		return "INACTIVE"
	}
	if s.Raw == "" {
		return "UNKNOWN"
	}
	return s.Raw
}
