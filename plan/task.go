package plan

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"
)

// TaskType tags a task with its role in repartition execution, which
// determines how its query string is produced and which ephemeral
// resources it needs on the workers.
type TaskType int

const (
	TaskInvalid TaskType = iota
	// MapTask partitions a shard's rows into per-partition output files
	// on the worker that owns the shard.
	MapTask
	// MapOutputFetchTask pulls one partition file of a map task's output
	// from the node that produced it to the node running the merge.
	MapOutputFetchTask
	// MergeTask recombines fetched partition files inside the job's
	// temporary schema.
	MergeTask
	SelectTask
	ModifyTask
)

func (m TaskType) String() string {
	switch m {
	case MapTask:
		return "map"
	case MapOutputFetchTask:
		return "map_output_fetch"
	case MergeTask:
		return "merge"
	case SelectTask:
		return "select"
	case ModifyTask:
		return "modify"
	}
	return "invalid"
}

// Placement is a candidate execution location for a task. The first
// placement of a dependency is authoritative for fetch purposes.
type Placement struct {
	NodeName string
	NodePort int
}

func (m *Placement) String() string { return fmt.Sprintf("%s:%d", m.NodeName, m.NodePort) }

// TaskKey is the globally unique identity of a task within one
// scheduling run.
type TaskKey struct {
	JobID  uint64
	TaskID uint32
}

func (m TaskKey) String() string { return fmt.Sprintf("%d/%d", m.JobID, m.TaskID) }

// Hash returns a stable 64 bit hash of the key.
func (m TaskKey) Hash() uint64 {
	var b [12]byte
	binary.LittleEndian.PutUint64(b[:8], m.JobID)
	binary.LittleEndian.PutUint32(b[8:], m.TaskID)
	return siphash.Hash(0, 1, b[:])
}

// Task is a unit of work produced by the planner. Tasks reference their
// dependencies directly; shared sub-dependencies alias the same *Task,
// so scheduling bookkeeping is always done on TaskKey, never on
// pointer identity.
type Task struct {
	JobID        uint64
	TaskID       uint32
	Type         TaskType
	QueryString  string // empty for fetch tasks until synthesized
	Dependencies []*Task
	Placements   []*Placement

	// set only on MapOutputFetchTask
	PartitionID    uint32 // which partition slice of the map output to pull
	UpstreamTaskID uint32 // the merge task receiving the partition
}

func (m *Task) Key() TaskKey { return TaskKey{JobID: m.JobID, TaskID: m.TaskID} }

func (m *Task) String() string {
	return fmt.Sprintf("task %s type=%s deps=%d", m.Key(), m.Type, len(m.Dependencies))
}
