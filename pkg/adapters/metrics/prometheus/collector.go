package prometheus

import (
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	crewKickoffs   *prometheus.CounterVec
	crewDuration   *prometheus.HistogramVec
	tasksExecuted  *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	planningRuns   *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	activeRuns     prometheus.Gauge
	workerPoolIdle prometheus.Gauge
	workerPoolBusy prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		crewKickoffs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagocrew_crew_kickoffs_total",
				Help: "Total number of crew kickoffs by final status",
			},
			[]string{"status"},
		),
		crewDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dagocrew_crew_duration_seconds",
				Help:    "Crew run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		tasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagocrew_tasks_executed_total",
				Help: "Total number of tasks executed",
			},
			[]string{"agent", "status"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dagocrew_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"agent"},
		),
		planningRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagocrew_planning_total",
				Help: "Total number of planning phases by outcome",
			},
			[]string{"outcome"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagocrew_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagocrew_llm_tokens_total",
				Help: "Total number of LLM tokens used",
			},
			[]string{"provider", "model", "type"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dagocrew_llm_latency_seconds",
				Help:    "LLM API call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"provider", "model"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagocrew_active_runs",
				Help: "Number of crew runs currently in progress",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagocrew_worker_pool_idle",
				Help: "Number of idle kickoff workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagocrew_worker_pool_busy",
				Help: "Number of busy kickoff workers",
			},
		),
	}
}

// RecordCrewKickoff records a finished crew run
func (c *Collector) RecordCrewKickoff(status string, duration time.Duration) {
	c.crewKickoffs.WithLabelValues(status).Inc()
	c.crewDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTaskExecuted records a task execution
func (c *Collector) RecordTaskExecuted(agent, status string, duration time.Duration) {
	c.tasksExecuted.WithLabelValues(agent, status).Inc()
	c.taskDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordPlanning records the outcome of a planning phase
func (c *Collector) RecordPlanning(outcome string) {
	c.planningRuns.WithLabelValues(outcome).Inc()
}

// RecordLLMCall records an LLM API call with its latency and token usage
func (c *Collector) RecordLLMCall(provider, model, status string, latency time.Duration, usage domain.TokenUsage) {
	c.llmCalls.WithLabelValues(provider, model, status).Inc()
	c.llmLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
	if usage.InputTokens > 0 {
		c.llmTokens.WithLabelValues(provider, model, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		c.llmTokens.WithLabelValues(provider, model, "output").Add(float64(usage.OutputTokens))
	}
}

// AddActiveRuns moves the active runs gauge by delta
func (c *Collector) AddActiveRuns(delta int) {
	c.activeRuns.Add(float64(delta))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
}
