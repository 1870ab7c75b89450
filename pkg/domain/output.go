package domain

import "time"

// TokenUsage counts tokens reported by a completion provider
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Total returns input plus output tokens
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// TaskOutput is the result of executing one task.
type TaskOutput struct {
	TaskID         string       `json:"task_id"`
	Name           string       `json:"name,omitempty"`
	Description    string       `json:"description"`
	ExpectedOutput string       `json:"expected_output"`
	Agent          string       `json:"agent"`
	Format         OutputFormat `json:"output_format"`
	Raw            string       `json:"raw"`
	JSON           any          `json:"json,omitempty"`
	Usage          TokenUsage   `json:"usage"`
}

func (o TaskOutput) String() string {
	return o.Raw
}

// CrewOutput is the aggregated result of a completed run. Raw and JSON
// mirror the last task in the resolved order.
type CrewOutput struct {
	RunID       string        `json:"run_id"`
	CrewName    string        `json:"crew_name,omitempty"`
	Raw         string        `json:"raw"`
	JSON        any           `json:"json,omitempty"`
	TasksOutput []TaskOutput  `json:"tasks_output"`
	Terminal    []TaskOutput  `json:"terminal"`
	Order       []string      `json:"order"`
	Planned     bool          `json:"planned"`
	Usage       TokenUsage    `json:"usage"`
	Duration    time.Duration `json:"duration"`
}

func (o *CrewOutput) String() string {
	if o == nil {
		return ""
	}
	return o.Raw
}

// Output returns the output of the given task, if it ran.
func (o *CrewOutput) Output(taskID string) (TaskOutput, bool) {
	for _, out := range o.TasksOutput {
		if out.TaskID == taskID {
			return out, true
		}
	}
	return TaskOutput{}, false
}
