package exec

import (
	"fmt"
	"strings"

	"github.com/google/btree"

	"github.com/Alovez/citus/plan"
)

const (
	// WorkerCreateSchemaQuery creates one job's temporary schema on a
	// worker to stage intermediate partitioned results.
	WorkerCreateSchemaQuery = "SELECT worker_create_schema(%d);"

	// WorkerDeleteJobDirQuery removes one job's temporary schema and
	// the on-disk job directory.
	WorkerDeleteJobDirQuery = "SELECT worker_cleanup_job_schema_cache(%d);"

	// JobSchemaCleanup removes every temporary job schema matching the
	// recognized naming convention, whatever job created it. Used for
	// crash recovery, not tied to a run.
	JobSchemaCleanup = "SELECT worker_cleanup_job_schema_cache();"
)

// jobIDItem makes a job id orderable for the btree.
type jobIDItem uint64

func (m jobIDItem) Less(than btree.Item) bool { return m < than.(jobIDItem) }

// jobIDSet is an ordered set of distinct job ids. Duplicates collapse
// silently and iteration is always ascending, so the generated command
// batch does not depend on the order merge tasks were discovered in.
type jobIDSet struct {
	bt *btree.BTree
}

func newJobIDSet() *jobIDSet { return &jobIDSet{bt: btree.New(32)} }

func (m *jobIDSet) add(jobID uint64)           { m.bt.ReplaceOrInsert(jobIDItem(jobID)) }
func (m *jobIDSet) contains(jobID uint64) bool { return m.bt.Has(jobIDItem(jobID)) }
func (m *jobIDSet) len() int                   { return m.bt.Len() }

func (m *jobIDSet) ids() []uint64 {
	ids := make([]uint64, 0, m.bt.Len())
	m.bt.Ascend(func(item btree.Item) bool {
		ids = append(ids, uint64(item.(jobIDItem)))
		return true
	})
	return ids
}

// jobIDsFromTasks collects the distinct job ids among the given tasks.
// A job contributes many merge tasks but needs exactly one schema.
func jobIDsFromTasks(tasks []*plan.Task) *jobIDSet {
	jobIDs := newJobIDSet()
	for _, task := range tasks {
		jobIDs.add(task.JobID)
	}
	return jobIDs
}

// generateJobCommand renders the template once per job id and
// concatenates the results, so a worker gets all subcommands in a
// single round trip.
func generateJobCommand(jobIDs *jobIDSet, templateCommand string) string {
	var sb strings.Builder
	for _, jobID := range jobIDs.ids() {
		fmt.Fprintf(&sb, templateCommand, jobID)
	}
	return sb.String()
}

// createTemporarySchemas provisions one temporary schema per distinct
// merge job on every worker, each worker inside a single transaction,
// before any task of the run is dispatched. Returns the job id set so
// teardown works on exactly the same jobs.
func (m *Scheduler) createTemporarySchemas(ctx *Context, mergeTasks []*plan.Task) (*jobIDSet, error) {
	jobIDs := jobIDsFromTasks(mergeTasks)
	if jobIDs.len() == 0 {
		return jobIDs, nil
	}
	command := generateJobCommand(jobIDs, WorkerCreateSchemaQuery)
	if err := m.sendCommandToAllWorkers([]string{command}); err != nil {
		return nil, fmt.Errorf("%s creating temporary schemas: %v", ctx.ID, err)
	}
	return jobIDs, nil
}

// removeTempJobDirs tears down the temporary schemas and job
// directories created for the run.
func (m *Scheduler) removeTempJobDirs(jobIDs *jobIDSet) error {
	if jobIDs.len() == 0 {
		return nil
	}
	command := generateJobCommand(jobIDs, WorkerDeleteJobDirQuery)
	return m.sendCommandToAllWorkers([]string{command})
}
