package exec

import (
	"fmt"
	"sync"

	u "github.com/araddon/gou"

	"github.com/Alovez/citus/plan"
	"github.com/Alovez/citus/worker"
)

// RowModifyLevel classifies how much a task batch may modify rows.
// Repartition rounds always dispatch at RowModifyNone; the levels above
// exist for executors shared with the modification path.
type RowModifyLevel int

const (
	RowModifyNone RowModifyLevel = iota
	RowModifyReadOnly
	RowModifyCommutative
	RowModifyNonCommutative
)

// PoolExecutor is the default TaskExecutor: it runs each task of a
// batch against the task's first placement through the command sender,
// holding at most maxPoolSize worker sessions open at once. Tasks map
// to a pool slot by key hash, so a task's position in the pool is
// stable across batches; each slot works through its queue
// sequentially.
type PoolExecutor struct {
	conf   *RuntimeConfig
	sender CommandSender
}

func NewPoolExecutor(conf *RuntimeConfig, sender CommandSender) *PoolExecutor {
	if conf == nil {
		conf = NewRuntimeConfig()
	}
	return &PoolExecutor{conf: conf, sender: sender}
}

// ExecuteTaskList runs the whole batch and returns nil only if every
// task succeeded. A slot stops at its first failure; the collected
// errors fail the batch as a whole and the caller must not record any
// of its tasks as complete.
func (m *PoolExecutor) ExecuteTaskList(ctx *Context, modLevel RowModifyLevel,
	tasks []*plan.Task, maxPoolSize int) error {

	if len(tasks) == 0 {
		return nil
	}
	if modLevel > RowModifyReadOnly {
		return fmt.Errorf("pool executor does not run modifying task batches")
	}
	if maxPoolSize < 1 {
		maxPoolSize = 1
	}
	poolSize := maxPoolSize
	if len(tasks) < poolSize {
		poolSize = len(tasks)
	}

	queues := make([][]*plan.Task, poolSize)
	for _, task := range tasks {
		slot := int(task.Key().Hash() % uint64(poolSize))
		queues[slot] = append(queues[slot], task)
	}

	errCh := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for slot, queue := range queues {
		if len(queue) == 0 {
			continue
		}
		wg.Add(1)
		go func(slot int, queue []*plan.Task) {
			defer wg.Done()
			defer func() {
				if m.conf.DisableRecover {
					return
				}
				if r := recover(); r != nil {
					u.Errorf("%s slot %d recovered: %v", ctx.ID, slot, r)
					errCh <- fmt.Errorf("slot %d: recovered panic: %v", slot, r)
				}
			}()
			for _, task := range queue {
				if err := m.executeTask(ctx, task); err != nil {
					errCh <- err
					return
				}
			}
		}(slot, queue)
	}
	wg.Wait()
	close(errCh)

	errs := make(errList, 0)
	for err := range errCh {
		errs.append(err)
	}
	return errs.error()
}

func (m *PoolExecutor) executeTask(ctx *Context, task *plan.Task) error {
	if task.QueryString == "" {
		return fmt.Errorf("task %s has no query string at dispatch", task.Key())
	}
	if len(task.Placements) == 0 {
		return fmt.Errorf("task %s has no placements", task.Key())
	}
	placement := task.Placements[0]
	node := worker.NewNode(placement.NodeName, placement.NodePort)
	u.Debugf("%s task %s on %s: %s", ctx.ID, task.Key(), node.Key(), task.QueryString)
	if err := m.sender.SendCommandsInTransaction(node, []string{task.QueryString}); err != nil {
		return fmt.Errorf("task %s: %v", task.Key(), err)
	}
	return nil
}
