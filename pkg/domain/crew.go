package domain

import (
	"fmt"
	"strings"
)

// Process selects how a crew drives its tasks.
type Process string

const (
	// ProcessSequential runs one task at a time in dependency order.
	ProcessSequential Process = "sequential"
)

// OutputFormat is the contract a task's output must satisfy.
type OutputFormat string

const (
	OutputFormatRaw  OutputFormat = "raw"
	OutputFormatJSON OutputFormat = "json"
)

// Valid reports whether f is a known format. The empty format means raw.
func (f OutputFormat) Valid() bool {
	switch f {
	case "", OutputFormatRaw, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// Agent is a role-bound executor configuration. It is referenced by tasks
// and must not be modified once a crew has been created with it.
type Agent struct {
	Role      string `json:"role" yaml:"role"`
	Goal      string `json:"goal" yaml:"goal"`
	Backstory string `json:"backstory,omitempty" yaml:"backstory,omitempty"`

	// LLM overrides the crew's default model for this agent.
	LLM string `json:"llm,omitempty" yaml:"llm,omitempty"`
}

// Validate checks the agent's required fields
func (a *Agent) Validate() error {
	if a == nil {
		return &ValidationError{Subject: "agent", Reason: "agent is nil"}
	}
	if strings.TrimSpace(a.Role) == "" {
		return &ValidationError{Subject: "agent", Reason: "role is required"}
	}
	if strings.TrimSpace(a.Goal) == "" {
		return &ValidationError{Subject: fmt.Sprintf("agent %q", a.Role), Reason: "goal is required"}
	}
	return nil
}

// Task is a unit of work assigned to an agent. Context lists the upstream
// tasks whose outputs are handed to this task, in declaration order.
type Task struct {
	ID             string       `json:"id"`
	Name           string       `json:"name,omitempty"`
	Description    string       `json:"description"`
	ExpectedOutput string       `json:"expected_output"`
	Agent          *Agent       `json:"-"`
	OutputFormat   OutputFormat `json:"output_format,omitempty"`
	Context        []*Task      `json:"-"`
}

// Format returns the task's output format, defaulting to raw.
func (t *Task) Format() OutputFormat {
	if t.OutputFormat == "" {
		return OutputFormatRaw
	}
	return t.OutputFormat
}

// Validate checks the task's own fields. Dependency references are checked
// by the dependency graph.
func (t *Task) Validate() error {
	if t == nil {
		return &ValidationError{Subject: "task", Reason: "task is nil"}
	}
	subject := fmt.Sprintf("task %q", t.ID)
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Subject: subject, Reason: "description is required"}
	}
	if strings.TrimSpace(t.ExpectedOutput) == "" {
		return &ValidationError{Subject: subject, Reason: "expected output is required"}
	}
	if t.Agent == nil {
		return &ValidationError{Subject: subject, Reason: "agent is required"}
	}
	if !t.OutputFormat.Valid() {
		return &ValidationError{Subject: subject, Reason: fmt.Sprintf("unknown output format %q", t.OutputFormat)}
	}
	for i, dep := range t.Context {
		if dep == nil {
			return &ValidationError{Subject: subject, Reason: fmt.Sprintf("context[%d] is nil", i)}
		}
	}
	return nil
}
