// Citus is the execution layer of a distributed query engine. It runs
// trees of interdependent tasks produced by a query planner against a
// fleet of worker nodes, honoring data-flow dependencies between map,
// fetch and merge stages of repartition joins. Includes the task graph
// model, the round based dependency scheduler, temporary schema
// lifecycle management and the worker broadcast gateway.
package citus
