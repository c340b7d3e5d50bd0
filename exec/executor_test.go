package exec

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alovez/citus/plan"
	"github.com/Alovez/citus/worker"
)

// countingSender tracks commands per node and the peak number of
// concurrently open sends.
type countingSender struct {
	mu       sync.Mutex
	byNode   map[string][]string
	inFlight int
	peak     int
	failFor  string
	panicFor string
}

func newCountingSender() *countingSender {
	return &countingSender{byNode: make(map[string][]string)}
}

func (m *countingSender) SendCommandsInTransaction(node *worker.Node, commands []string) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.byNode[node.Key()] = append(m.byNode[node.Key()], commands...)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()
	for _, command := range commands {
		if m.panicFor != "" && strings.Contains(command, m.panicFor) {
			panic("sender exploded")
		}
		if m.failFor != "" && strings.Contains(command, m.failFor) {
			return fmt.Errorf("fake failure")
		}
	}
	return nil
}

func poolTask(jobID uint64, taskID uint32, node string) *plan.Task {
	return &plan.Task{JobID: jobID, TaskID: taskID, Type: plan.SelectTask,
		QueryString: fmt.Sprintf("SELECT %d", taskID),
		Placements:  []*plan.Placement{{NodeName: node, NodePort: 5432}}}
}

func TestPoolExecutorRunsWholeBatch(t *testing.T) {
	sender := newCountingSender()
	executor := NewPoolExecutor(nil, sender)
	ctx := NewContext(nil)

	tasks := []*plan.Task{
		poolTask(1, 1, "w1"), poolTask(1, 2, "w2"), poolTask(1, 3, "w1"),
	}
	err := executor.ExecuteTaskList(ctx, RowModifyNone, tasks, 8)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(sender.byNode["w1:5432"]))
	assert.Equal(t, 1, len(sender.byNode["w2:5432"]))
}

func TestPoolExecutorBoundsConcurrency(t *testing.T) {
	sender := newCountingSender()
	executor := NewPoolExecutor(nil, sender)
	ctx := NewContext(nil)

	tasks := make([]*plan.Task, 0, 32)
	for i := 1; i <= 32; i++ {
		tasks = append(tasks, poolTask(2, uint32(i), "w1"))
	}
	err := executor.ExecuteTaskList(ctx, RowModifyNone, tasks, 4)
	assert.Equal(t, nil, err)
	assert.True(t, sender.peak <= 4, "peak %d sessions, want <= 4", sender.peak)
	total := 0
	for _, commands := range sender.byNode {
		total += len(commands)
	}
	assert.Equal(t, 32, total)
}

func TestPoolExecutorFailureFailsBatch(t *testing.T) {
	sender := newCountingSender()
	sender.failFor = "SELECT 2"
	executor := NewPoolExecutor(nil, sender)
	ctx := NewContext(nil)

	tasks := []*plan.Task{poolTask(1, 1, "w1"), poolTask(1, 2, "w1"), poolTask(1, 3, "w1")}
	err := executor.ExecuteTaskList(ctx, RowModifyNone, tasks, 1)
	assert.NotEqual(t, nil, err)
	assert.True(t, strings.Contains(err.Error(), "task 1/2"))
}

func TestPoolExecutorRejectsEmptyQueryString(t *testing.T) {
	executor := NewPoolExecutor(nil, newCountingSender())
	ctx := NewContext(nil)

	task := poolTask(1, 1, "w1")
	task.QueryString = ""
	err := executor.ExecuteTaskList(ctx, RowModifyNone, []*plan.Task{task}, 4)
	assert.NotEqual(t, nil, err)
	assert.True(t, strings.Contains(err.Error(), "no query string"))
}

func TestPoolExecutorRejectsMissingPlacement(t *testing.T) {
	executor := NewPoolExecutor(nil, newCountingSender())
	ctx := NewContext(nil)

	task := poolTask(1, 1, "w1")
	task.Placements = nil
	err := executor.ExecuteTaskList(ctx, RowModifyNone, []*plan.Task{task}, 4)
	assert.NotEqual(t, nil, err)
	assert.True(t, strings.Contains(err.Error(), "no placements"))
}

func TestPoolExecutorRejectsModifyingBatch(t *testing.T) {
	executor := NewPoolExecutor(nil, newCountingSender())
	ctx := NewContext(nil)

	err := executor.ExecuteTaskList(ctx, RowModifyCommutative,
		[]*plan.Task{poolTask(1, 1, "w1")}, 4)
	assert.NotEqual(t, nil, err)
}

func TestPoolExecutorEmptyBatch(t *testing.T) {
	executor := NewPoolExecutor(nil, newCountingSender())
	assert.Equal(t, nil, executor.ExecuteTaskList(NewContext(nil), RowModifyNone, nil, 4))
}

func TestPoolExecutorRecoversPanics(t *testing.T) {
	sender := newCountingSender()
	sender.panicFor = "SELECT 1"
	executor := NewPoolExecutor(nil, sender)
	ctx := NewContext(nil)

	err := executor.ExecuteTaskList(ctx, RowModifyNone, []*plan.Task{poolTask(1, 1, "w1")}, 4)
	assert.NotEqual(t, nil, err)
	assert.True(t, strings.Contains(err.Error(), "recovered panic"))
}

func TestPoolExecutorMinPoolSize(t *testing.T) {
	sender := newCountingSender()
	executor := NewPoolExecutor(nil, sender)
	err := executor.ExecuteTaskList(NewContext(nil), RowModifyNone,
		[]*plan.Task{poolTask(1, 1, "w1")}, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(sender.byNode["w1:5432"]))
}
