package domain

import "time"

// RunStatus is the state of a crew run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusPlanning  RunStatus = "planning"
	RunStatusExecuting RunStatus = "executing"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// TaskStatus is the state of a single task within a run
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskState tracks one task during a run.
type TaskState struct {
	TaskID      string     `json:"task_id"`
	Agent       string     `json:"agent"`
	Position    int        `json:"position"`
	Status      TaskStatus `json:"status"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunState is a snapshot of a run, saved at every transition. It is an
// observability record; runs are never resumed from it.
type RunState struct {
	RunID         string                `json:"run_id"`
	CrewName      string                `json:"crew_name,omitempty"`
	Status        RunStatus             `json:"status"`
	Planning      bool                  `json:"planning"`
	PlanApplied   bool                  `json:"plan_applied"`
	PlanningError string                `json:"planning_error,omitempty"`
	Inputs        map[string]string     `json:"inputs,omitempty"`
	Order         []string              `json:"order"`
	Tasks         map[string]*TaskState `json:"tasks"`
	// FailedTask is empty when the run stopped between tasks
	FailedTask    string                `json:"failed_task,omitempty"`
	Error         string                `json:"error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	StartedAt     *time.Time            `json:"started_at,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so stored snapshots never alias live state.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Inputs != nil {
		c.Inputs = make(map[string]string, len(s.Inputs))
		for k, v := range s.Inputs {
			c.Inputs[k] = v
		}
	}
	c.Order = append([]string(nil), s.Order...)
	c.Tasks = make(map[string]*TaskState, len(s.Tasks))
	for id, ts := range s.Tasks {
		tc := *ts
		c.Tasks[id] = &tc
	}
	return &c
}
