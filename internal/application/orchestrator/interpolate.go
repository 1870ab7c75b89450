package orchestrator

import (
	"regexp"

	"github.com/aescanero/dagocrew/pkg/domain"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_\-]*)\}`)

// interpolate replaces {name} placeholders with values from inputs.
// Placeholders without a matching input are left untouched.
func interpolate(text string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		if value, ok := inputs[match[1:len(match)-1]]; ok {
			return value
		}
		return match
	})
}

// interpolateAgent returns a copy of agent with inputs applied
func interpolateAgent(agent *domain.Agent, inputs map[string]string) *domain.Agent {
	c := *agent
	c.Role = interpolate(agent.Role, inputs)
	c.Goal = interpolate(agent.Goal, inputs)
	c.Backstory = interpolate(agent.Backstory, inputs)
	return &c
}
