// Package crewfile loads crew definitions from YAML or JSON files.
//
// A definition names its agents and refers to them from tasks by ID. Task
// context entries refer to other tasks by ID; references to tasks that are
// not defined are kept so that crew construction reports them as dangling
// dependencies.
package crewfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aescanero/dagocrew/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Definition is the file representation of a crew
type Definition struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Process     string            `json:"process,omitempty" yaml:"process,omitempty"`
	Planning    bool              `json:"planning,omitempty" yaml:"planning,omitempty"`
	PlanningLLM string            `json:"planning_llm,omitempty" yaml:"planning_llm,omitempty"`
	Verbose     bool              `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Agents      []AgentDefinition `json:"agents" yaml:"agents"`
	Tasks       []TaskDefinition  `json:"tasks" yaml:"tasks"`

	// Inputs are default kickoff inputs; command-line inputs override them
	Inputs map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// AgentDefinition is an agent with the ID tasks use to refer to it
type AgentDefinition struct {
	ID        string `json:"id" yaml:"id"`
	Role      string `json:"role" yaml:"role"`
	Goal      string `json:"goal" yaml:"goal"`
	Backstory string `json:"backstory,omitempty" yaml:"backstory,omitempty"`
	LLM       string `json:"llm,omitempty" yaml:"llm,omitempty"`
}

// TaskDefinition is a task whose agent and context are given by ID
type TaskDefinition struct {
	ID             string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string   `json:"description" yaml:"description"`
	ExpectedOutput string   `json:"expected_output" yaml:"expected_output"`
	Agent          string   `json:"agent" yaml:"agent"`
	OutputFormat   string   `json:"output_format,omitempty" yaml:"output_format,omitempty"`
	Context        []string `json:"context,omitempty" yaml:"context,omitempty"`
}

// LoadFile reads a definition, detecting the format from the extension
// (.yaml, .yml or .json).
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crew file: %w", err)
	}

	format := detectFormat(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}

	return LoadBytes(data, format)
}

// LoadBytes parses a definition in the given format ("yaml" or "json")
func LoadBytes(data []byte, format string) (*Definition, error) {
	var def Definition

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}

	return &def, nil
}

// LoadInputs reads a flat key/value file of kickoff inputs. A file holding
// a list of maps yields one input set per entry.
func LoadInputs(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs file: %w", err)
	}

	var batch []map[string]string
	if err := yaml.Unmarshal(data, &batch); err == nil {
		return batch, nil
	}

	var single map[string]string
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse inputs file: %w", err)
	}
	return []map[string]string{single}, nil
}

// Build turns the definition into domain agents and tasks, in file order
func (d *Definition) Build() ([]*domain.Agent, []*domain.Task, error) {
	agents := make([]*domain.Agent, 0, len(d.Agents))
	byID := make(map[string]*domain.Agent, len(d.Agents))
	for i, a := range d.Agents {
		id := a.ID
		if id == "" {
			id = a.Role
		}
		if id == "" {
			return nil, nil, fmt.Errorf("agents[%d] needs an id or a role", i)
		}
		if _, dup := byID[id]; dup {
			return nil, nil, fmt.Errorf("agent %q is defined more than once", id)
		}
		agent := &domain.Agent{Role: a.Role, Goal: a.Goal, Backstory: a.Backstory, LLM: a.LLM}
		byID[id] = agent
		agents = append(agents, agent)
	}

	tasks := make([]*domain.Task, len(d.Tasks))
	tasksByID := make(map[string]*domain.Task, len(d.Tasks))
	for i, td := range d.Tasks {
		agent, ok := byID[td.Agent]
		if !ok {
			return nil, nil, fmt.Errorf("tasks[%d] refers to unknown agent %q", i, td.Agent)
		}
		tasks[i] = &domain.Task{
			ID:             td.ID,
			Name:           td.Name,
			Description:    td.Description,
			ExpectedOutput: td.ExpectedOutput,
			Agent:          agent,
			OutputFormat:   domain.OutputFormat(strings.ToLower(td.OutputFormat)),
		}
		if td.ID != "" {
			tasksByID[td.ID] = tasks[i]
		}
	}

	for i, td := range d.Tasks {
		for _, ref := range td.Context {
			dep, ok := tasksByID[ref]
			if !ok {
				dep = &domain.Task{ID: ref}
			}
			tasks[i].Context = append(tasks[i].Context, dep)
		}
	}

	return agents, tasks, nil
}

// detectFormat returns "yaml" or "json" based on the extension, or ""
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
