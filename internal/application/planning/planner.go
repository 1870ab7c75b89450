package planning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultModel is the planning model used when none is configured
const DefaultModel = "gpt-4"

// PlanHeading introduces a step plan appended to a task description
const PlanHeading = "Execution plan:"

const instrumentationName = "github.com/aescanero/dagocrew/planning"

// PlanningPrompt is the prompt template for the planning phase
const PlanningPrompt = `You are a planning agent coordinating a crew of AI agents.

## Crew
{{range .Agents}}- {{.Role}}: {{.Goal}}
{{end}}
## Tasks
{{range .Tasks}}
### {{.ID}}
- Agent: {{.Agent}}
- Description: {{.Description}}
- Expected output: {{.ExpectedOutput}}
- Depends on: {{if .DependsOn}}{{join .DependsOn ", "}}{{else}}nothing{{end}}
{{end}}
## Instructions

1. Decide the order in which the tasks should run. A task must come after every task it depends on.
2. For each task, write a step-by-step plan the assigned agent should follow.
3. You may rewrite a task description to make it clearer, but never change what the task must deliver.

## Plan JSON Schema

Output a JSON object with this structure:
- "summary": Brief summary of the plan (string)
- "tasks": Array with one object per task, in execution order, each with:
  - "id": The task id exactly as given above (string)
  - "description": The task description, optionally reworded (string)
  - "plan": Step-by-step plan for the agent (string)

Every task id must appear exactly once. Do not invent tasks.

## Response Format

Respond ONLY with valid JSON. Do not include any text before or after the JSON object.
`

var planningTmpl = template.Must(template.New("planning").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(PlanningPrompt))

// Config configures a Planner
type Config struct {
	LLMClient   ports.LLMClient
	Model       string
	Temperature float64
	MaxTokens   int

	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// Planner asks a completion provider for a task order and per-task plans
type Planner struct {
	llm         ports.LLMClient
	model       string
	temperature float64
	maxTokens   int
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewPlanner creates a new planner
func NewPlanner(cfg Config) (*Planner, error) {
	if cfg.LLMClient == nil {
		return nil, errors.New("planner requires an LLM client")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	return &Planner{
		llm:         cfg.LLMClient,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		logger:      cfg.Logger.With(zap.String("component", "planner")),
	}, nil
}

// Model returns the planning model
func (p *Planner) Model() string { return p.model }

type promptTask struct {
	ID             string
	Agent          string
	Description    string
	ExpectedOutput string
	DependsOn      []string
}

// Plan proposes an execution order for tasks. Every failure is a
// *domain.PlanningError.
func (p *Planner) Plan(ctx context.Context, tasks []*domain.Task, agents []*domain.Agent) (*domain.Plan, error) {
	ctx, span := p.tracer.Start(ctx, "crew.plan",
		trace.WithAttributes(
			attribute.String("llm.model", p.model),
			attribute.Int("plan.task_count", len(tasks)),
		))
	defer span.End()

	plan, err := p.plan(ctx, tasks, agents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning failed")
		return nil, err
	}
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, tasks []*domain.Task, agents []*domain.Agent) (*domain.Plan, error) {
	if len(tasks) == 0 {
		return &domain.Plan{}, nil
	}

	prompt, err := BuildPrompt(tasks, agents)
	if err != nil {
		return nil, &domain.PlanningError{Reason: "failed to render prompt", Err: err}
	}

	p.logger.Debug("requesting plan",
		zap.String("model", p.model),
		zap.Int("tasks", len(tasks)))

	resp, err := p.llm.GenerateCompletion(ctx, &domain.LLMRequest{
		Model:       p.model,
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: prompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return nil, &domain.PlanningError{Reason: "completion provider failed", Err: err}
	}

	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return nil, &domain.PlanningError{Reason: "unparseable plan", Err: err}
	}
	plan.Usage = resp.Usage

	if err := CheckCoverage(plan, tasks); err != nil {
		return nil, &domain.PlanningError{Reason: "plan does not match the task list", Err: err}
	}

	p.logger.Debug("plan received",
		zap.Strings("order", plan.Order()),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	return plan, nil
}

// BuildPrompt renders the planning prompt
func BuildPrompt(tasks []*domain.Task, agents []*domain.Agent) (string, error) {
	data := struct {
		Agents []*domain.Agent
		Tasks  []promptTask
	}{Agents: agents}

	for _, t := range tasks {
		pt := promptTask{
			ID:             t.ID,
			Description:    t.Description,
			ExpectedOutput: t.ExpectedOutput,
		}
		if t.Agent != nil {
			pt.Agent = t.Agent.Role
		}
		for _, dep := range t.Context {
			pt.DependsOn = append(pt.DependsOn, dep.ID)
		}
		data.Tasks = append(data.Tasks, pt)
	}

	var buf bytes.Buffer
	if err := planningTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParsePlan extracts the plan JSON object from a completion. Markdown
// fences and prose around the object are ignored.
func ParsePlan(output string) (*domain.Plan, error) {
	output = strings.TrimSpace(output)
	output = strings.TrimPrefix(output, "```json")
	output = strings.TrimPrefix(output, "```")
	output = strings.TrimSuffix(output, "```")
	output = strings.TrimSpace(output)

	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in output")
	}
	output = output[start : end+1]

	var plan domain.Plan
	if err := json.Unmarshal([]byte(output), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return &plan, nil
}

// CheckCoverage verifies that the plan names every task exactly once and
// nothing else.
func CheckCoverage(plan *domain.Plan, tasks []*domain.Task) error {
	if len(plan.Tasks) != len(tasks) {
		return fmt.Errorf("plan has %d tasks, expected %d", len(plan.Tasks), len(tasks))
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	seen := make(map[string]bool, len(plan.Tasks))
	for _, pt := range plan.Tasks {
		if !known[pt.ID] {
			return fmt.Errorf("plan references unknown task %q", pt.ID)
		}
		if seen[pt.ID] {
			return fmt.Errorf("plan lists task %q more than once", pt.ID)
		}
		seen[pt.ID] = true
	}
	return nil
}

// ReviseDescription applies a planned entry to a task description. A
// non-empty planned description replaces the original; a step plan is
// appended under PlanHeading.
func ReviseDescription(original string, planned domain.PlannedTask) string {
	description := original
	if d := strings.TrimSpace(planned.Description); d != "" {
		description = d
	}
	if steps := strings.TrimSpace(planned.Plan); steps != "" {
		description += "\n\n" + PlanHeading + "\n" + steps
	}
	return description
}
