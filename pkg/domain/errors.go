package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateNotFound is returned by state storage for unknown run IDs
	ErrStateNotFound = errors.New("state not found")

	// ErrUnsupportedProvider is returned by the LLM factory
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// ValidationError reports an invalid agent, task or crew definition
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Subject, e.Reason)
}

// CycleError reports a dependency cycle. Path starts and ends with the same task.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "dependency cycle detected"
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// DanglingDependencyError reports a dependency on a task that is not registered
type DanglingDependencyError struct {
	TaskID     string
	Dependency string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("task %s depends on unregistered task %s", e.TaskID, e.Dependency)
}

// DuplicateTaskError reports a task registered twice
type DuplicateTaskError struct {
	TaskID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %s is already registered", e.TaskID)
}

// PlanningError reports a failed or rejected plan. Runs recover from it by
// falling back to the original order.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// OutputFormatError reports output that does not satisfy the task's format
type OutputFormatError struct {
	TaskID string
	Format OutputFormat
	Err    error
}

func (e *OutputFormatError) Error() string {
	return fmt.Sprintf("task %s output is not valid %s: %v", e.TaskID, e.Format, e.Err)
}

func (e *OutputFormatError) Unwrap() error { return e.Err }

// ProviderError wraps a completion provider failure
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("completion provider error: %v", e.Err)
	}
	return fmt.Sprintf("completion provider %s error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TaskExecutionError is returned by a failed run. Position is the 1-based
// index of the failing task in the resolved order.
type TaskExecutionError struct {
	TaskID   string
	Agent    string
	Position int
	Total    int
	Err      error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %s (position %d of %d, agent %q) failed: %v",
		e.TaskID, e.Position, e.Total, e.Agent, e.Err)
}

func (e *TaskExecutionError) Unwrap() error { return e.Err }
