package workers

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

// ContextDivider separates upstream outputs in a task prompt
const ContextDivider = "\n\n----------\n\n"

const instrumentationName = "github.com/aescanero/dagocrew/workers"

const systemPrompt = `You are {{.Role}}.{{if .Backstory}} {{.Backstory}}{{end}}
Your personal goal is: {{.Goal}}`

const taskPrompt = `Current Task: {{.Description}}

This is the expected criteria for your final answer: {{.ExpectedOutput}}
You MUST return the actual complete content as the final answer, not a summary.
{{- if .Context}}

This is the context you're working with:
{{.Context}}
{{- end}}
{{- if .JSON}}

Respond with a single valid JSON value only. Do not include any text before or after it.
{{- end}}

Begin! This is VERY important to you, give your best Final Answer.`

var (
	systemTmpl = template.Must(template.New("system").Parse(systemPrompt))
	taskTmpl   = template.Must(template.New("task").Parse(taskPrompt))
)

// ExecutorConfig configures an Executor
type ExecutorConfig struct {
	LLMClient ports.LLMClient

	// Model is used for agents without their own LLM override
	Model       string
	Temperature float64
	MaxTokens   int

	// TracerProvider defaults to the global provider
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// Executor runs a single task against a completion provider. It holds no
// per-run state and is safe for concurrent use.
type Executor struct {
	llm         ports.LLMClient
	model       string
	temperature float64
	maxTokens   int
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewExecutor creates a new task executor
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.LLMClient == nil {
		return nil, errors.New("executor requires an LLM client")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	return &Executor{
		llm:         cfg.LLMClient,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		logger:      cfg.Logger.With(zap.String("component", "executor")),
	}, nil
}

// Run executes task with the outputs of its dependencies, given in
// declaration order. The provider is called exactly once.
func (e *Executor) Run(ctx context.Context, task *domain.Task, contextOutputs []domain.TaskOutput) (*domain.TaskOutput, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	req, err := e.BuildRequest(task, contextOutputs)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "task.execute",
		trace.WithAttributes(
			attribute.String("task.id", task.ID),
			attribute.String("agent.role", task.Agent.Role),
			attribute.String("llm.model", req.Model),
			attribute.Int("task.context_count", len(contextOutputs)),
		))
	defer span.End()

	e.logger.Debug("executing task",
		zap.String("task_id", task.ID),
		zap.String("agent", task.Agent.Role),
		zap.String("model", req.Model),
		zap.Int("context_outputs", len(contextOutputs)))

	resp, err := e.llm.GenerateCompletion(ctx, req)
	if err != nil {
		var providerErr *domain.ProviderError
		if !errors.As(err, &providerErr) {
			err = &domain.ProviderError{Provider: e.llm.Name(), Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)

	output := &domain.TaskOutput{
		TaskID:         task.ID,
		Name:           task.Name,
		Description:    task.Description,
		ExpectedOutput: task.ExpectedOutput,
		Agent:          task.Agent.Role,
		Format:         task.Format(),
		Raw:            resp.Content,
		Usage:          resp.Usage,
	}

	if task.Format() == domain.OutputFormatJSON {
		payload, err := decodeJSON(resp.Content)
		if err != nil {
			formatErr := &domain.OutputFormatError{TaskID: task.ID, Format: domain.OutputFormatJSON, Err: err}
			span.RecordError(formatErr)
			span.SetStatus(codes.Error, "invalid output format")
			return nil, formatErr
		}
		output.JSON = payload
	}

	return output, nil
}

// BuildRequest composes the completion request for a task
func (e *Executor) BuildRequest(task *domain.Task, contextOutputs []domain.TaskOutput) (*domain.LLMRequest, error) {
	var system bytes.Buffer
	if err := systemTmpl.Execute(&system, task.Agent); err != nil {
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}

	var user bytes.Buffer
	err := taskTmpl.Execute(&user, map[string]any{
		"Description":    task.Description,
		"ExpectedOutput": task.ExpectedOutput,
		"Context":        JoinContext(contextOutputs),
		"JSON":           task.Format() == domain.OutputFormatJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render task prompt: %w", err)
	}

	model := e.model
	if task.Agent.LLM != "" {
		model = task.Agent.LLM
	}

	return &domain.LLMRequest{
		Model:       model,
		System:      system.String(),
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: user.String()}},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}, nil
}

// JoinContext joins upstream raw outputs with ContextDivider
func JoinContext(outputs []domain.TaskOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, out := range outputs {
		parts = append(parts, out.Raw)
	}
	return strings.Join(parts, ContextDivider)
}

// decodeJSON decodes a JSON value, tolerating a surrounding markdown fence
func decodeJSON(content string) (any, error) {
	content = stripCodeFences(content)
	if content == "" {
		return nil, errors.New("empty output")
	}

	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
