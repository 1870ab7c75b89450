// Package workers executes single tasks against a completion provider.
//
// The Executor composes the agent's system prompt from its role, goal and
// backstory, and the task prompt from the description, the expected output
// and the raw outputs of the task's dependencies, joined by ContextDivider.
// Tasks with a JSON output format must answer with a JSON value, optionally
// inside a markdown fence.
//
// The Executor holds no run state; one instance serves every run of a crew.
package workers
