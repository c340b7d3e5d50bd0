package exec

import (
	"fmt"

	"github.com/Alovez/citus/plan"
)

// MapOutputFetchCommand pulls one partition file of a map task's output
// to the worker that will run the merge task. Parameters: map job id,
// map task id, partition id, merge task id, source node name, source
// node port.
const MapOutputFetchCommand = "SELECT worker_fetch_partition_file(%d, %d, %d, %d, '%s', %d)"

// fillFetchQueryStrings synthesizes the fetch command for every fetch
// task in the batch that does not carry one yet. Runs on the driver
// thread right before dispatch, so a fetch task always has a non-empty
// query string by the time the executor sees it.
func fillFetchQueryStrings(batch []*plan.Task) {
	for _, task := range batch {
		if task.Type == plan.MapOutputFetchTask && task.QueryString == "" {
			task.QueryString = mapFetchTaskQueryString(task)
		}
	}
}

// validateFetchTasks asserts the planner contract for every fetch task
// before any worker state is provisioned, so a defective task tree
// aborts the run without leaving temporary schemas behind.
func validateFetchTasks(fetchTasks []*plan.Task) {
	for _, task := range fetchTasks {
		mapFetchDependency(task)
	}
}

// mapFetchTaskQueryString builds the fetch command for a map output
// fetch task from its map dependency. The map task's first placement is
// authoritative: with replication factor > 1 a failure on any replica
// already failed the whole run, so reaching a fetch task means the map
// output exists on the first replica.
func mapFetchTaskQueryString(fetchTask *plan.Task) string {
	mapTask := mapFetchDependency(fetchTask)

	placement := mapTask.Placements[0]
	return fmt.Sprintf(MapOutputFetchCommand,
		mapTask.JobID, mapTask.TaskID,
		fetchTask.PartitionID,
		fetchTask.UpstreamTaskID, // fetch results to merge task
		placement.NodeName, placement.NodePort)
}

// mapFetchDependency returns the single map dependency of a fetch task.
// Anything else is a planner defect, not a runtime condition, so it
// panics rather than returning an error.
func mapFetchDependency(fetchTask *plan.Task) *plan.Task {
	if fetchTask.Type != plan.MapOutputFetchTask {
		panic(fmt.Sprintf("task %s is %s, not a map output fetch task",
			fetchTask.Key(), fetchTask.Type))
	}
	if len(fetchTask.Dependencies) != 1 {
		panic(fmt.Sprintf("fetch task %s must have exactly one dependency, has %d",
			fetchTask.Key(), len(fetchTask.Dependencies)))
	}
	mapTask := fetchTask.Dependencies[0]
	if mapTask.Type != plan.MapTask {
		panic(fmt.Sprintf("fetch task %s depends on %s task %s, expected a map task",
			fetchTask.Key(), mapTask.Type, mapTask.Key()))
	}
	if len(mapTask.Placements) == 0 {
		panic(fmt.Sprintf("map task %s has no placements", mapTask.Key()))
	}
	return mapTask
}
