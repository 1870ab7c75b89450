package orchestrator

import (
	"testing"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	inputs := map[string]string{"topic": "AI agents", "year": "2026"}

	tests := []struct {
		text string
		want string
	}{
		{"Research {topic}", "Research AI agents"},
		{"{topic} in {year}", "AI agents in 2026"},
		{"Keep {unknown} as is", "Keep {unknown} as is"},
		{`JSON like {"a": 1} stays`, `JSON like {"a": 1} stays`},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interpolate(tt.text, inputs))
	}

	assert.Equal(t, "Research {topic}", interpolate("Research {topic}", nil))
}

func TestInterpolateAgent(t *testing.T) {
	agent := &domain.Agent{Role: "{topic} Researcher", Goal: "Study {topic}", Backstory: "Expert", LLM: "gpt-4"}
	got := interpolateAgent(agent, map[string]string{"topic": "Market"})

	assert.Equal(t, "Market Researcher", got.Role)
	assert.Equal(t, "Study Market", got.Goal)
	assert.Equal(t, "gpt-4", got.LLM)
	assert.Equal(t, "{topic} Researcher", agent.Role, "original must not change")
}
