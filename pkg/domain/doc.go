// Package domain holds the core types shared by the crew engine and its adapters.
//
// It defines:
//   - Agents and tasks (the crew definition)
//   - Task and crew outputs
//   - Plans produced by the planning phase
//   - Run state snapshots and lifecycle events
//   - LLM request/response types used by the completion provider port
//   - The error taxonomy (graph, planning, output format, provider errors)
package domain
