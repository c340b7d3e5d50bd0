package exec

import (
	"fmt"
	"strings"

	u "github.com/araddon/gou"

	"github.com/Alovez/citus/plan"
	"github.com/Alovez/citus/worker"
)

var (
	// Scheduler uses the pool executor unless told otherwise
	_ TaskExecutor = (*PoolExecutor)(nil)
)

// WorkerDirectory lists the workers a run may talk to.
type WorkerDirectory interface {
	ActiveReadableNodes() ([]*worker.Node, error)
}

// CommandSender executes an ordered command list on one worker inside a
// single transaction scoped to that worker.
type CommandSender interface {
	SendCommandsInTransaction(node *worker.Node, commands []string) error
}

// TaskExecutor runs a batch of ready tasks to completion. The call is
// synchronous and all-or-nothing: it returns nil only once every task
// of the batch succeeded, and an error fails the whole run.
type TaskExecutor interface {
	ExecuteTaskList(ctx *Context, modLevel RowModifyLevel, tasks []*plan.Task, maxPoolSize int) error
}

// TxState reports on the enclosing transaction. Repartition execution
// does not share a transaction context, so a transaction that already
// performed modifications cannot start a run.
type TxState interface {
	ModificationsHaveBeenDone() bool
}

// noTxState is the default when the caller runs outside any
// transaction block.
type noTxState struct{}

func (noTxState) ModificationsHaveBeenDone() bool { return false }

// Scheduler drives repartition execution: it expands the task tree,
// provisions per-job temporary schemas on every worker, dispatches
// ready batches round by round and tears the schemas down afterwards.
// Scheduling itself is single threaded and round synchronous; all
// parallelism lives in the TaskExecutor.
type Scheduler struct {
	conf     *RuntimeConfig
	workers  WorkerDirectory
	sender   CommandSender
	executor TaskExecutor
	tx       TxState
}

// NewScheduler wires a scheduler. executor may be nil to use the pool
// executor over the given sender; tx may be nil when there is no
// enclosing transaction.
func NewScheduler(conf *RuntimeConfig, workers WorkerDirectory, sender CommandSender,
	executor TaskExecutor, tx TxState) *Scheduler {

	if conf == nil {
		conf = NewRuntimeConfig()
	}
	if executor == nil {
		executor = NewPoolExecutor(conf, sender)
	}
	if tx == nil {
		tx = noTxState{}
	}
	return &Scheduler{
		conf:     conf,
		workers:  workers,
		sender:   sender,
		executor: executor,
		tx:       tx,
	}
}

// ExecuteDependedTasks executes every task reachable from the given top
// level tasks except the top level tasks themselves, honoring the
// dependency edges between them. Any broadcast or execution failure
// aborts the run and skips the teardown step; CleanUpSchemas reclaims
// whatever an aborted run left behind.
func (m *Scheduler) ExecuteDependedTasks(topLevelTasks []*plan.Task) error {
	if m.tx.ModificationsHaveBeenDone() {
		return fmt.Errorf("repartition execution cannot follow modifications in the same transaction")
	}

	ctx := NewContext(m.conf)

	allTasks := plan.TaskAndExecutionList(topLevelTasks)
	fetchTasks, mergeTasks := plan.FillTaskGroups(allTasks)
	validateFetchTasks(fetchTasks)

	u.Debugf("%s run: %d tasks (%d top level, %d fetch, %d merge)", ctx.ID,
		len(allTasks), len(topLevelTasks), len(fetchTasks), len(mergeTasks))

	jobIDs, err := m.createTemporarySchemas(ctx, mergeTasks)
	if err != nil {
		return err
	}

	if err := m.executeTasksInDependencyOrder(ctx, allTasks, topLevelTasks); err != nil {
		return err
	}

	return m.removeTempJobDirs(jobIDs)
}

// CleanUpSchemas removes every temporary job schema on every worker,
// independent of any run. Maintenance entry point for reclaiming state
// left behind by aborted runs.
func (m *Scheduler) CleanUpSchemas() error {
	return m.sendCommandToAllWorkers([]string{JobSchemaCleanup})
}

// sendCommandToAllWorkers broadcasts the ordered command list to every
// active readable worker, one transaction per worker. The first failing
// worker aborts the broadcast; there is no partial-success state to
// reconcile and no retry, since re-running provisioning statements
// under partial failure is not safe.
func (m *Scheduler) sendCommandToAllWorkers(commands []string) error {
	nodes, err := m.workers.ActiveReadableNodes()
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if err := m.sender.SendCommandsInTransaction(node, commands); err != nil {
			return fmt.Errorf("broadcast to worker %s: %v", node.Key(), err)
		}
	}
	return nil
}

// Create a multiple error type
type errList []error

func (e *errList) append(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

func (e errList) error() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e errList) Error() string {
	a := make([]string, len(e))
	for i, v := range e {
		a[i] = v.Error()
	}
	return strings.Join(a, "\n")
}
