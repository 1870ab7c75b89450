package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskExecutionError_Unwrap(t *testing.T) {
	cause := &OutputFormatError{TaskID: "task-2", Format: OutputFormatJSON, Err: errors.New("unexpected end of JSON input")}
	err := fmt.Errorf("run failed: %w", &TaskExecutionError{
		TaskID:   "task-2",
		Agent:    "analyst",
		Position: 2,
		Total:    3,
		Err:      cause,
	})

	var execErr *TaskExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "task-2", execErr.TaskID)
	assert.Equal(t, 2, execErr.Position)

	var formatErr *OutputFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, OutputFormatJSON, formatErr.Format)

	assert.Contains(t, err.Error(), "position 2 of 3")
	assert.Contains(t, err.Error(), `agent "analyst"`)
}

func TestProviderError_Is(t *testing.T) {
	sentinel := errors.New("overloaded")
	err := &TaskExecutionError{TaskID: "a", Err: &ProviderError{Provider: "anthropic", Err: sentinel}}

	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "completion provider anthropic error: overloaded")
}

func TestCycleError_Message(t *testing.T) {
	assert.Equal(t, "dependency cycle detected: a -> b -> a", (&CycleError{Path: []string{"a", "b", "a"}}).Error())
	assert.Equal(t, "dependency cycle detected", (&CycleError{}).Error())
}

func TestPlanningError_Message(t *testing.T) {
	withCause := &PlanningError{Reason: "provider unavailable", Err: errors.New("timeout")}
	assert.Equal(t, "planning failed: provider unavailable: timeout", withCause.Error())

	plain := &PlanningError{Reason: "plan violates dependencies"}
	assert.Equal(t, "planning failed: plan violates dependencies", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestTask_Validate(t *testing.T) {
	agent := &Agent{Role: "researcher", Goal: "collect data"}

	tests := []struct {
		name    string
		task    *Task
		wantErr string
	}{
		{"valid", &Task{ID: "t1", Description: "d", ExpectedOutput: "e", Agent: agent}, ""},
		{"nil", nil, "task is nil"},
		{"missing description", &Task{ID: "t1", ExpectedOutput: "e", Agent: agent}, "description is required"},
		{"missing expected output", &Task{ID: "t1", Description: "d", Agent: agent}, "expected output is required"},
		{"missing agent", &Task{ID: "t1", Description: "d", ExpectedOutput: "e"}, "agent is required"},
		{"bad format", &Task{ID: "t1", Description: "d", ExpectedOutput: "e", Agent: agent, OutputFormat: "xml"}, "unknown output format"},
		{"nil context", &Task{ID: "t1", Description: "d", ExpectedOutput: "e", Agent: agent, Context: []*Task{nil}}, "context[0] is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAgent_Validate(t *testing.T) {
	assert.NoError(t, (&Agent{Role: "writer", Goal: "write"}).Validate())
	assert.ErrorContains(t, (&Agent{Goal: "write"}).Validate(), "role is required")
	assert.ErrorContains(t, (&Agent{Role: "writer"}).Validate(), "goal is required")
}

func TestRunState_Clone(t *testing.T) {
	orig := &RunState{
		RunID:  "run-1",
		Inputs: map[string]string{"topic": "AI"},
		Order:  []string{"a", "b"},
		Tasks:  map[string]*TaskState{"a": {TaskID: "a", Status: TaskStatusPending}},
	}

	c := orig.Clone()
	c.Order[0] = "z"
	c.Inputs["topic"] = "changed"
	c.Tasks["a"].Status = TaskStatusCompleted

	assert.Equal(t, "a", orig.Order[0])
	assert.Equal(t, "AI", orig.Inputs["topic"])
	assert.Equal(t, TaskStatusPending, orig.Tasks["a"].Status)
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}.Add(TokenUsage{InputTokens: 1, OutputTokens: 2})
	assert.Equal(t, TokenUsage{InputTokens: 11, OutputTokens: 7}, u)
	assert.Equal(t, 18, u.Total())
}
