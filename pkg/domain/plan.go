package domain

// PlannedTask is one entry of a plan. Description, when set, replaces the
// task's description for the run; Plan is appended to it.
type PlannedTask struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Plan        string `json:"plan,omitempty"`
}

// Plan is the planning phase's proposal: tasks in the order they should run.
// It is consumed once by the run that requested it.
type Plan struct {
	Summary string        `json:"summary,omitempty"`
	Tasks   []PlannedTask `json:"tasks"`
	Usage   TokenUsage    `json:"-"`
}

// Order returns the proposed task IDs in execution order.
func (p *Plan) Order() []string {
	order := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		order[i] = t.ID
	}
	return order
}
