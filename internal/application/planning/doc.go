// Package planning implements the optional planning phase of a crew run.
//
// The planner renders the crew's tasks and agent roster into a prompt, asks
// the planning completion provider for an ordered task list and parses the
// JSON answer. Its output is untrusted: Plan checks that every task appears
// exactly once, and the crew re-validates the proposed order against the
// dependency graph before using it.
package planning
