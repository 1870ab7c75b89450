package orchestrator

import (
	"fmt"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// Validator validates crew definitions
type Validator struct{}

// NewValidator creates a new crew definition validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the process, the agents and the tasks of a crew. The
// roster is agents; when it is empty, the agents assigned to tasks form it.
// Dependency structure is checked separately by the dependency graph.
func (v *Validator) Validate(process domain.Process, agents []*domain.Agent, tasks []*domain.Task) error {
	if process != "" && process != domain.ProcessSequential {
		return &domain.ValidationError{Subject: "crew", Reason: fmt.Sprintf("unsupported process %q", process)}
	}

	if len(tasks) == 0 {
		return &domain.ValidationError{Subject: "crew", Reason: "at least one task is required"}
	}

	roster := make(map[*domain.Agent]bool, len(agents))
	for i, agent := range agents {
		if agent == nil {
			return &domain.ValidationError{Subject: "crew", Reason: fmt.Sprintf("agents[%d] is nil", i)}
		}
		if err := agent.Validate(); err != nil {
			return err
		}
		roster[agent] = true
	}

	for _, task := range tasks {
		if err := v.validateTask(task); err != nil {
			return err
		}
		if len(agents) > 0 && !roster[task.Agent] {
			return &domain.ValidationError{
				Subject: fmt.Sprintf("task %q", task.ID),
				Reason:  fmt.Sprintf("agent %q is not part of the crew", task.Agent.Role),
			}
		}
	}

	return nil
}

// validateTask validates a single task and its agent
func (v *Validator) validateTask(task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	return task.Agent.Validate()
}
