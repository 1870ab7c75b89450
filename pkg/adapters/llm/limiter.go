package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dagocrew/pkg/adapters/metrics"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LimitConfig bounds the load a LimitedClient puts on its provider
type LimitConfig struct {
	// MaxConcurrent caps in-flight requests. Zero means unlimited.
	MaxConcurrent int
	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64
	// Timeout applies to each request. Zero means no timeout.
	Timeout time.Duration
}

// LimitedClient wraps an LLMClient with a concurrency cap, a rate limit,
// a per-request timeout and call metrics.
type LimitedClient struct {
	inner   ports.LLMClient
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewLimitedClient wraps inner. A nil collector records nothing.
func NewLimitedClient(inner ports.LLMClient, cfg LimitConfig, collector ports.MetricsCollector, logger *zap.Logger) *LimitedClient {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &LimitedClient{
		inner:   inner,
		timeout: cfg.Timeout,
		metrics: collector,
		logger:  logger,
	}
	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Name returns the wrapped provider's name
func (c *LimitedClient) Name() string { return c.inner.Name() }

// GenerateCompletion waits for a slot and a rate token, then delegates
func (c *LimitedClient) GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to acquire LLM slot: %w", err)
		}
		defer c.sem.Release(1)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for LLM rate limit: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.inner.GenerateCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		c.metrics.RecordLLMCall(c.inner.Name(), req.Model, "error", latency, domain.TokenUsage{})
		c.logger.Warn("LLM call failed",
			zap.String("provider", c.inner.Name()),
			zap.String("model", req.Model),
			zap.Duration("latency", latency),
			zap.Error(err))
		return nil, err
	}

	c.metrics.RecordLLMCall(c.inner.Name(), req.Model, "success", latency, resp.Usage)
	c.logger.Debug("LLM call completed",
		zap.String("provider", c.inner.Name()),
		zap.String("model", resp.Model),
		zap.Duration("latency", latency),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens))
	return resp, nil
}
