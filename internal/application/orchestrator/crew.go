package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dagocrew/internal/application/planning"
	"github.com/aescanero/dagocrew/internal/application/workers"
	eventsmemory "github.com/aescanero/dagocrew/pkg/adapters/events/memory"
	"github.com/aescanero/dagocrew/pkg/adapters/metrics"
	storagememory "github.com/aescanero/dagocrew/pkg/adapters/storage/memory"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/aescanero/dagocrew/orchestrator"

// Planning outcomes recorded in metrics
const (
	PlanningApplied  = "applied"
	PlanningFallback = "fallback"
)

// CrewConfig holds a crew definition and its collaborators
type CrewConfig struct {
	Name    string
	Agents  []*domain.Agent
	Tasks   []*domain.Task
	Process domain.Process

	// Planning enables the planning phase before each run
	Planning bool
	// PlanningLLM is the planning model, planning.DefaultModel when empty
	PlanningLLM string
	// Verbose logs every task output at Info level
	Verbose bool

	// LLMClient executes tasks; PlanningClient plans and defaults to LLMClient
	LLMClient      ports.LLMClient
	PlanningClient ports.LLMClient
	Model          string
	Temperature    float64
	MaxTokens      int

	// ExecutionTimeout bounds a whole run. Zero means no limit.
	ExecutionTimeout time.Duration

	// Optional adapters. Nil event bus and storage fall back to in-memory
	// implementations; nil metrics records nothing.
	EventBus       ports.EventBus
	Storage        ports.StateStorage
	Metrics        ports.MetricsCollector
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// taskDef is a registered task with its dependencies resolved to IDs
type taskDef struct {
	task *domain.Task
	deps []string
}

// Crew owns a validated task graph and drives runs over it
type Crew struct {
	name     string
	verbose  bool
	agents   []*domain.Agent
	tasks    map[string]*taskDef
	graph    *Graph
	order    []string
	terminal map[string]bool

	executor *workers.Executor
	planner  *planning.Planner
	timeout  time.Duration

	eventBus ports.EventBus
	storage  ports.StateStorage
	metrics  ports.MetricsCollector
	tracer   trace.Tracer
	logger   *zap.Logger

	// active runs by run ID
	executions sync.Map
}

// NewCrew validates the definition and builds the dependency graph. Tasks
// without an ID get task-N from their position. The caller's agents and
// tasks are never modified.
func NewCrew(cfg CrewConfig) (*Crew, error) {
	if cfg.LLMClient == nil {
		return nil, errors.New("crew requires an LLM client")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.EventBus == nil {
		cfg.EventBus = eventsmemory.NewInMemoryEventBus()
	}
	if cfg.Storage == nil {
		cfg.Storage = storagememory.NewInMemoryStateStorage()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}

	defs, ids, err := resolveTasks(cfg.Tasks)
	if err != nil {
		return nil, err
	}

	registered := make([]*domain.Task, len(ids))
	for i, id := range ids {
		registered[i] = defs[id].task
	}
	if err := NewValidator().Validate(cfg.Process, cfg.Agents, registered); err != nil {
		return nil, err
	}

	graph := NewGraph()
	for _, id := range ids {
		if err := graph.Add(id, defs[id].deps); err != nil {
			return nil, err
		}
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	agents := cfg.Agents
	if len(agents) == 0 {
		agents = rosterFromTasks(registered)
	}

	executor, err := workers.NewExecutor(workers.ExecutorConfig{
		LLMClient:      cfg.LLMClient,
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		TracerProvider: cfg.TracerProvider,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	c := &Crew{
		name:     cfg.Name,
		verbose:  cfg.Verbose,
		agents:   agents,
		tasks:    defs,
		graph:    graph,
		order:    order,
		terminal: make(map[string]bool),
		executor: executor,
		timeout:  cfg.ExecutionTimeout,
		eventBus: cfg.EventBus,
		storage:  cfg.Storage,
		metrics:  cfg.Metrics,
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
		logger:   cfg.Logger.With(zap.String("component", "crew"), zap.String("crew", cfg.Name)),
	}
	for _, id := range graph.Terminal() {
		c.terminal[id] = true
	}

	if cfg.Planning {
		planningClient := cfg.PlanningClient
		if planningClient == nil {
			planningClient = cfg.LLMClient
		}
		c.planner, err = planning.NewPlanner(planning.Config{
			LLMClient:      planningClient,
			Model:          cfg.PlanningLLM,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			TracerProvider: cfg.TracerProvider,
			Logger:         cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create planner: %w", err)
		}
	}

	c.logger.Debug("crew created",
		zap.Int("tasks", len(order)),
		zap.Strings("order", order),
		zap.Bool("planning", cfg.Planning))

	return c, nil
}

// resolveTasks copies the tasks, assigns missing IDs and resolves Context
// references to IDs. A reference is matched by pointer first, then by ID.
// Repeated references keep their first position.
func resolveTasks(tasks []*domain.Task) (map[string]*taskDef, []string, error) {
	byPtr := make(map[*domain.Task]string, len(tasks))
	ids := make([]string, 0, len(tasks))
	defs := make(map[string]*taskDef, len(tasks))

	for i, t := range tasks {
		if t == nil {
			return nil, nil, &domain.ValidationError{Subject: "crew", Reason: fmt.Sprintf("tasks[%d] is nil", i)}
		}
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		if _, dup := defs[id]; dup {
			return nil, nil, &domain.DuplicateTaskError{TaskID: id}
		}

		c := *t
		c.ID = id
		c.Context = nil
		defs[id] = &taskDef{task: &c}
		byPtr[t] = id
		ids = append(ids, id)
	}

	for i, t := range tasks {
		def := defs[ids[i]]
		seen := make(map[string]bool, len(t.Context))
		for j, dep := range t.Context {
			if dep == nil {
				return nil, nil, &domain.ValidationError{
					Subject: fmt.Sprintf("task %q", def.task.ID),
					Reason:  fmt.Sprintf("context[%d] is nil", j),
				}
			}
			depID, ok := byPtr[dep]
			if !ok {
				depID = dep.ID
				if depID == "" {
					depID = "(unregistered task)"
				}
			}
			if seen[depID] {
				continue
			}
			seen[depID] = true
			def.deps = append(def.deps, depID)
		}
	}

	return defs, ids, nil
}

func rosterFromTasks(tasks []*domain.Task) []*domain.Agent {
	seen := make(map[*domain.Agent]bool)
	var roster []*domain.Agent
	for _, t := range tasks {
		if !seen[t.Agent] {
			seen[t.Agent] = true
			roster = append(roster, t.Agent)
		}
	}
	return roster
}

// Name returns the crew name
func (c *Crew) Name() string { return c.name }

// Order returns the execution order used when planning is off
func (c *Crew) Order() []string {
	return append([]string(nil), c.order...)
}

// Graph returns the crew's dependency graph
func (c *Crew) Graph() *Graph { return c.graph }

// Planning reports whether runs start with a planning phase
func (c *Crew) Planning() bool { return c.planner != nil }

// Task returns a copy of a registered task with its assigned ID. Context is
// not populated; use Graph().Dependencies for the resolved references.
func (c *Crew) Task(id string) (domain.Task, bool) {
	def, ok := c.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *def.task, true
}

// run is the mutable state of a single kickoff
type run struct {
	id       string
	state    *domain.RunState
	tasks    map[string]*domain.Task
	agents   []*domain.Agent
	order    []string
	planned  bool
	usage    domain.TokenUsage
	outputs  map[string]domain.TaskOutput
	executed []domain.TaskOutput
	started  time.Time
	logger   *zap.Logger
}

// Kickoff executes the crew once. inputs fill {placeholder}s in agent and
// task text. On failure no output is returned and the error is a
// *domain.TaskExecutionError naming the failing task.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*domain.CrewOutput, error) {
	runID := uuid.New().String()

	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.timeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.executions.Store(runID, cancel)
	defer c.executions.Delete(runID)

	c.metrics.AddActiveRuns(1)
	defer c.metrics.AddActiveRuns(-1)

	ctx, span := c.tracer.Start(ctx, "crew.kickoff",
		trace.WithAttributes(
			attribute.String("crew.name", c.name),
			attribute.String("run.id", runID),
			attribute.Int("crew.task_count", len(c.order)),
			attribute.Bool("crew.planning", c.planner != nil),
		))
	defer span.End()

	r := c.newRun(runID, inputs)
	r.logger.Info("crew kickoff started",
		zap.Int("tasks", len(r.order)),
		zap.Bool("planning", c.planner != nil))

	c.saveState(ctx, r)
	c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypeCrewStarted, "", map[string]interface{}{
		"crew":  c.name,
		"order": r.order,
	})

	if c.planner != nil {
		c.runPlanning(ctx, r)
	}

	output, err := c.execute(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crew run failed")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("crew.planned", output.Planned))
	return output, nil
}

// newRun copies the crew's agents and tasks for one run and applies inputs
func (c *Crew) newRun(runID string, inputs map[string]string) *run {
	agents := make(map[*domain.Agent]*domain.Agent, len(c.agents))
	roster := make([]*domain.Agent, 0, len(c.agents))
	for _, a := range c.agents {
		agents[a] = interpolateAgent(a, inputs)
		roster = append(roster, agents[a])
	}

	tasks := make(map[string]*domain.Task, len(c.tasks))
	for id, def := range c.tasks {
		t := *def.task
		t.Description = interpolate(t.Description, inputs)
		t.ExpectedOutput = interpolate(t.ExpectedOutput, inputs)
		if a, ok := agents[def.task.Agent]; ok {
			t.Agent = a
		} else {
			t.Agent = interpolateAgent(def.task.Agent, inputs)
		}
		tasks[id] = &t
	}
	for id, def := range c.tasks {
		for _, dep := range def.deps {
			tasks[id].Context = append(tasks[id].Context, tasks[dep])
		}
	}

	now := time.Now()
	state := &domain.RunState{
		RunID:     runID,
		CrewName:  c.name,
		Status:    domain.RunStatusCreated,
		Planning:  c.planner != nil,
		Inputs:    inputs,
		Order:     append([]string(nil), c.order...),
		Tasks:     make(map[string]*domain.TaskState, len(c.order)),
		CreatedAt: now,
	}
	for i, id := range c.order {
		state.Tasks[id] = &domain.TaskState{
			TaskID:   id,
			Agent:    tasks[id].Agent.Role,
			Position: i + 1,
			Status:   domain.TaskStatusPending,
		}
	}

	return &run{
		id:      runID,
		state:   state,
		tasks:   tasks,
		agents:  roster,
		order:   append([]string(nil), c.order...),
		outputs: make(map[string]domain.TaskOutput, len(c.order)),
		started: now,
		logger:  c.logger.With(zap.String("run_id", runID)),
	}
}

// runPlanning asks the planner for an order and applies it when it is
// valid. Any planning failure falls back to the original order.
func (c *Crew) runPlanning(ctx context.Context, r *run) {
	r.state.Status = domain.RunStatusPlanning
	c.saveState(ctx, r)
	c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypePlanningStarted, "", map[string]interface{}{
		"model": c.planner.Model(),
	})

	ordered := make([]*domain.Task, len(r.order))
	for i, id := range r.order {
		ordered[i] = r.tasks[id]
	}

	plan, err := c.planner.Plan(ctx, ordered, r.agents)
	if err == nil {
		r.usage = r.usage.Add(plan.Usage)
		if orderErr := c.graph.CheckOrder(plan.Order()); orderErr != nil {
			err = &domain.PlanningError{Reason: "plan violates task dependencies", Err: orderErr}
		}
	}

	if err != nil {
		r.logger.Warn("planning failed, falling back to the original task order",
			zap.Strings("order", r.order),
			zap.Error(err))
		r.state.PlanningError = err.Error()
		c.metrics.RecordPlanning(PlanningFallback)
		c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypePlanningFallback, "", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for _, pt := range plan.Tasks {
		task := r.tasks[pt.ID]
		task.Description = planning.ReviseDescription(task.Description, pt)
	}
	r.order = plan.Order()
	r.planned = true
	r.state.PlanApplied = true
	r.state.Order = append([]string(nil), r.order...)
	for i, id := range r.order {
		r.state.Tasks[id].Position = i + 1
	}

	r.logger.Info("plan applied", zap.Strings("order", r.order))
	c.metrics.RecordPlanning(PlanningApplied)
	c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypePlanningCompleted, "", map[string]interface{}{
		"order":   r.order,
		"summary": plan.Summary,
	})
}

// execute runs the tasks one at a time in the resolved order
func (c *Crew) execute(ctx context.Context, r *run) (*domain.CrewOutput, error) {
	now := time.Now()
	r.state.Status = domain.RunStatusExecuting
	r.state.StartedAt = &now
	c.saveState(ctx, r)

	for i, id := range r.order {
		task := r.tasks[id]
		position := i + 1

		// cancellation is honoured between tasks only
		if err := ctx.Err(); err != nil {
			return nil, c.fail(ctx, r, task, position, err)
		}

		contextOutputs := make([]domain.TaskOutput, 0, len(task.Context))
		for _, dep := range task.Context {
			contextOutputs = append(contextOutputs, r.outputs[dep.ID])
		}

		ts := r.state.Tasks[id]
		startedAt := time.Now()
		ts.Status = domain.TaskStatusRunning
		ts.StartedAt = &startedAt
		c.saveState(ctx, r)
		c.publish(ctx, domain.TopicTaskEvents, r, domain.EventTypeTaskStarted, id, map[string]interface{}{
			"agent":    task.Agent.Role,
			"position": position,
		})

		r.logger.Info("executing task",
			zap.String("task_id", id),
			zap.String("agent", task.Agent.Role),
			zap.Int("position", position),
			zap.Int("total", len(r.order)))

		output, err := c.executor.Run(ctx, task, contextOutputs)
		duration := time.Since(startedAt)
		if err != nil {
			c.metrics.RecordTaskExecuted(task.Agent.Role, string(domain.TaskStatusFailed), duration)
			return nil, c.fail(ctx, r, task, position, err)
		}

		completedAt := time.Now()
		ts.Status = domain.TaskStatusCompleted
		ts.Output = output.Raw
		ts.CompletedAt = &completedAt
		r.outputs[id] = *output
		r.executed = append(r.executed, *output)
		r.usage = r.usage.Add(output.Usage)

		c.metrics.RecordTaskExecuted(task.Agent.Role, string(domain.TaskStatusCompleted), duration)
		c.saveState(ctx, r)
		c.publish(ctx, domain.TopicTaskEvents, r, domain.EventTypeTaskCompleted, id, map[string]interface{}{
			"agent":       task.Agent.Role,
			"position":    position,
			"duration_ms": duration.Milliseconds(),
		})

		level := zapcore.DebugLevel
		if c.verbose {
			level = zapcore.InfoLevel
		}
		r.logger.Check(level, "task completed").Write(
			zap.String("task_id", id),
			zap.String("agent", task.Agent.Role),
			zap.Duration("duration", duration),
			zap.String("output", output.Raw))
	}

	return c.complete(ctx, r), nil
}

// complete assembles the crew output and records the successful run
func (c *Crew) complete(ctx context.Context, r *run) *domain.CrewOutput {
	duration := time.Since(r.started)
	output := &domain.CrewOutput{
		RunID:       r.id,
		CrewName:    c.name,
		TasksOutput: r.executed,
		Order:       r.order,
		Planned:     r.planned,
		Usage:       r.usage,
		Duration:    duration,
	}
	if n := len(r.executed); n > 0 {
		output.Raw = r.executed[n-1].Raw
		output.JSON = r.executed[n-1].JSON
	}
	for _, out := range r.executed {
		if c.terminal[out.TaskID] {
			output.Terminal = append(output.Terminal, out)
		}
	}

	completedAt := time.Now()
	r.state.Status = domain.RunStatusCompleted
	r.state.CompletedAt = &completedAt
	c.saveState(ctx, r)
	c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypeCrewCompleted, "", map[string]interface{}{
		"duration_ms":   duration.Milliseconds(),
		"planned":       r.planned,
		"input_tokens":  r.usage.InputTokens,
		"output_tokens": r.usage.OutputTokens,
	})
	c.metrics.RecordCrewKickoff(string(domain.RunStatusCompleted), duration)

	r.logger.Info("crew kickoff completed",
		zap.Duration("duration", duration),
		zap.Bool("planned", r.planned),
		zap.Int("total_tokens", r.usage.Total()))

	return output
}

// fail records a failed run and builds the error returned by Kickoff. A task
// that never started stays pending and only the run is marked failed.
func (c *Crew) fail(ctx context.Context, r *run, task *domain.Task, position int, cause error) error {
	execErr := &domain.TaskExecutionError{
		TaskID:   task.ID,
		Agent:    task.Agent.Role,
		Position: position,
		Total:    len(r.order),
		Err:      cause,
	}

	// state and events must still be written after cancellation
	ctx = context.WithoutCancel(ctx)

	completedAt := time.Now()
	ts := r.state.Tasks[task.ID]
	started := ts.Status == domain.TaskStatusRunning
	if started {
		ts.Status = domain.TaskStatusFailed
		ts.Error = cause.Error()
		ts.CompletedAt = &completedAt
		r.state.FailedTask = task.ID
	}
	r.state.Status = domain.RunStatusFailed
	r.state.Error = execErr.Error()
	r.state.CompletedAt = &completedAt
	c.saveState(ctx, r)

	crewData := map[string]interface{}{"error": execErr.Error()}
	if started {
		c.publish(ctx, domain.TopicTaskEvents, r, domain.EventTypeTaskFailed, task.ID, map[string]interface{}{
			"agent":    task.Agent.Role,
			"position": position,
			"error":    cause.Error(),
		})
		crewData["failed_task"] = task.ID
	} else {
		crewData["stopped_before"] = task.ID
	}
	c.publish(ctx, domain.TopicCrewEvents, r, domain.EventTypeCrewFailed, "", crewData)
	c.metrics.RecordCrewKickoff(string(domain.RunStatusFailed), time.Since(r.started))

	r.logger.Error("crew kickoff failed",
		zap.String("task_id", task.ID),
		zap.String("agent", task.Agent.Role),
		zap.Int("position", position),
		zap.Error(cause))

	return execErr
}

// saveState persists a snapshot; failures are logged and the run continues
func (c *Crew) saveState(ctx context.Context, r *run) {
	if err := c.storage.SaveState(ctx, r.state.Clone()); err != nil {
		r.logger.Warn("failed to save run state",
			zap.String("status", string(r.state.Status)),
			zap.Error(err))
	}
}

// publish emits a lifecycle event; failures are logged and the run continues
func (c *Crew) publish(ctx context.Context, topic string, r *run, eventType domain.EventType, taskID string, data map[string]interface{}) {
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     r.id,
		TaskID:    taskID,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := c.eventBus.Publish(ctx, topic, event); err != nil {
		r.logger.Warn("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// Cancel stops a running kickoff. The run fails at the next task boundary.
func (c *Crew) Cancel(runID string) error {
	val, ok := c.executions.Load(runID)
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	val.(context.CancelFunc)()
	c.logger.Info("crew run cancelled", zap.String("run_id", runID))
	return nil
}

// ActiveRuns returns the IDs of runs in progress
func (c *Crew) ActiveRuns() []string {
	var ids []string
	c.executions.Range(func(key, _ interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// RunState returns the latest stored snapshot of a run
func (c *Crew) RunState(ctx context.Context, runID string) (*domain.RunState, error) {
	state, err := c.storage.GetState(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return state, nil
}

// Shutdown cancels all active runs
func (c *Crew) Shutdown(ctx context.Context) error {
	c.logger.Info("shutting down crew")

	c.executions.Range(func(_, value interface{}) bool {
		value.(context.CancelFunc)()
		return true
	})

	return nil
}
