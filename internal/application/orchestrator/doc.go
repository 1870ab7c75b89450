// Package orchestrator implements the crew: a validated task graph driven
// through sequential runs.
//
// The crew coordinates a run by:
//   - Copying agents and tasks and applying kickoff inputs
//   - Optionally asking the planner for a task order, falling back to the
//     graph's own order when the plan is rejected
//   - Executing tasks one at a time, feeding each the outputs of its dependencies
//   - Publishing lifecycle events and saving run state snapshots
//
// The graph keeps tasks and dependency edges, rejects cycles and dangling
// references, and computes an order stable with respect to insertion.
// The validator checks agent and task definitions. The pool runs
// independent kickoffs concurrently.
package orchestrator
