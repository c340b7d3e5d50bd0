package plan

import (
	u "github.com/araddon/gou"
)

var _ = u.EMPTY

// TaskAndExecutionList expands the given top level tasks into the full
// flattened list of tasks reachable through dependency edges, top level
// tasks included. A task reachable through several paths (a map task
// shared by many fetch tasks is the common case) appears exactly once.
// Order is breadth-first from the given top level order so rounds are
// deterministic. Pure data transformation, no side effects.
func TaskAndExecutionList(topLevelTasks []*Task) []*Task {
	allTasks := make([]*Task, 0, len(topLevelTasks))
	seen := make(map[TaskKey]struct{}, len(topLevelTasks))

	queue := make([]*Task, len(topLevelTasks))
	copy(queue, topLevelTasks)

	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]

		key := task.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		allTasks = append(allTasks, task)
		queue = append(queue, task.Dependencies...)
	}
	return allTasks
}

// FillTaskGroups partitions the flattened task list by role into the
// groups the scheduler needs separately: fetch tasks get their query
// strings synthesized, merge tasks drive temporary schema creation.
// Every other task stays addressable through the full list.
func FillTaskGroups(allTasks []*Task) (fetchTasks, mergeTasks []*Task) {
	for _, task := range allTasks {
		switch task.Type {
		case MapOutputFetchTask:
			fetchTasks = append(fetchTasks, task)
		case MergeTask:
			mergeTasks = append(mergeTasks, task)
		}
	}
	return fetchTasks, mergeTasks
}
