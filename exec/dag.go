package exec

import (
	u "github.com/araddon/gou"

	"github.com/Alovez/citus/plan"
)

// CompletedSet is the set of task keys confirmed complete during one
// scheduling run. Keys are write-once and the set is discarded with the
// run; it is owned by the round driver and passed to the readiness scan
// explicitly, never shared across goroutines.
type CompletedSet struct {
	keys map[plan.TaskKey]struct{}
}

func NewCompletedSet() *CompletedSet {
	return &CompletedSet{keys: make(map[plan.TaskKey]struct{}, 64)}
}

func (m *CompletedSet) Add(task *plan.Task) { m.keys[task.Key()] = struct{}{} }

func (m *CompletedSet) AddAll(tasks []*plan.Task) {
	for _, task := range tasks {
		m.keys[task.Key()] = struct{}{}
	}
}

func (m *CompletedSet) Contains(key plan.TaskKey) bool {
	_, ok := m.keys[key]
	return ok
}

func (m *CompletedSet) Len() int { return len(m.keys) }

// readyTasks computes the next batch: every task whose dependencies
// have all completed and which has not completed itself. The whole task
// list is rescanned each round; graph depth is bounded by the
// map -> fetch -> merge chain so the simple scan beats maintaining an
// incremental frontier.
func readyTasks(allTasks []*plan.Task, completed *CompletedSet) []*plan.Task {
	var ready []*plan.Task
	for _, task := range allTasks {
		if completed.Contains(task.Key()) {
			continue
		}
		if allDependenciesCompleted(task, completed) {
			ready = append(ready, task)
		}
	}
	return ready
}

func allDependenciesCompleted(task *plan.Task, completed *CompletedSet) bool {
	for _, dep := range task.Dependencies {
		if !completed.Contains(dep.Key()) {
			return false
		}
	}
	return true
}

// executeTasksInDependencyOrder runs the round loop. Top level tasks are
// executed by the caller, so they are seeded into the completed set and
// act purely as dependency roots here. A batch is marked complete only
// after the executor returns success for the whole batch; on error the
// set is left untouched and no further round runs. Terminates once no
// task is ready, which the planner's acyclic task tree guarantees within
// depth(graph) rounds.
func (m *Scheduler) executeTasksInDependencyOrder(ctx *Context, allTasks, topLevelTasks []*plan.Task) error {
	completed := NewCompletedSet()
	completed.AddAll(topLevelTasks)

	for round := 1; ; round++ {
		batch := readyTasks(allTasks, completed)
		if len(batch) == 0 {
			u.Debugf("%s round %d: no task ready, %d/%d complete", ctx.ID, round,
				completed.Len(), len(allTasks))
			return nil
		}
		fillFetchQueryStrings(batch)

		u.Debugf("%s round %d: dispatching %d tasks", ctx.ID, round, len(batch))
		if err := m.executor.ExecuteTaskList(ctx, RowModifyNone, batch, m.conf.MaxPoolSize); err != nil {
			return err
		}
		completed.AddAll(batch)
	}
}
