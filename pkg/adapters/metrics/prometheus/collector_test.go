package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCrewKickoff("completed", 2*time.Second)
	c.RecordCrewKickoff("failed", time.Second)
	c.RecordCrewKickoff("completed", 3*time.Second)
	c.RecordTaskExecuted("Researcher", "completed", 500*time.Millisecond)
	c.RecordPlanning("applied")
	c.RecordLLMCall("anthropic", "claude", "success", time.Second, domain.TokenUsage{InputTokens: 100, OutputTokens: 20})
	c.RecordLLMCall("anthropic", "claude", "error", time.Second, domain.TokenUsage{})
	c.AddActiveRuns(2)
	c.AddActiveRuns(-1)
	c.RecordWorkerPoolStatus(3, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.crewKickoffs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.crewKickoffs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksExecuted.WithLabelValues("Researcher", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.planningRuns.WithLabelValues("applied")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.llmTokens.WithLabelValues("anthropic", "claude", "input")))
	assert.Equal(t, 20.0, testutil.ToFloat64(c.llmTokens.WithLabelValues("anthropic", "claude", "output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeRuns))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.workerPoolIdle))

	expected := `
# HELP dagocrew_llm_calls_total Total number of LLM API calls
# TYPE dagocrew_llm_calls_total counter
dagocrew_llm_calls_total{model="claude",provider="anthropic",status="error"} 1
dagocrew_llm_calls_total{model="claude",provider="anthropic",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dagocrew_llm_calls_total"))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
