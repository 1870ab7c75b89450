package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aescanero/dagocrew/internal/config"
	"github.com/aescanero/dagocrew/internal/telemetry"
	eventsmemory "github.com/aescanero/dagocrew/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/dagocrew/pkg/adapters/events/redis"
	"github.com/aescanero/dagocrew/pkg/adapters/llm"
	"github.com/aescanero/dagocrew/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/dagocrew/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/dagocrew/pkg/adapters/storage/redis"
	"github.com/aescanero/dagocrew/pkg/ports"

	prom "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the adapters shared by the commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	redisClient *goredis.Client
	eventBus    ports.EventBus
	storage     ports.StateStorage
	registry    *prom.Registry
	metrics     *prometheus.Collector
	telemetry   *telemetry.Providers
}

// newApp loads configuration and connects the adapters
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := initLogger(cfg.LogLevel)
	registry := prom.NewRegistry()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  prometheus.NewCollector(registry),
	}

	a.telemetry, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if !cfg.Redis.Enabled() {
		logger.Debug("REDIS_ADDR not set, keeping run state and events in memory")
		a.eventBus = eventsmemory.NewInMemoryEventBus()
		a.storage = storagememory.NewInMemoryStateStorage()
		return a, nil
	}

	if err := a.connectRedis(ctx); err != nil {
		a.abort()
		return nil, err
	}
	return a, nil
}

// connectRedis opens the Redis client and the adapters built on it
func (a *app) connectRedis(ctx context.Context) error {
	cfg := a.cfg.Redis
	a.redisClient = goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.logger.Info("connected to Redis", zap.String("addr", cfg.Addr))

	var err error
	a.eventBus, err = eventsredis.NewStreamsEventBus(a.redisClient, eventsredis.StreamsConfig{
		ConsumerGroup: cfg.ConsumerGroup,
		ConsumerName:  fmt.Sprintf("dagocrew-%d", os.Getpid()),
		MaxLen:        cfg.StreamMaxLen,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	a.storage = storageredis.NewStateStorage(a.redisClient, cfg.StateTTL, a.logger)
	return nil
}

// abort releases what newApp acquired before it failed
func (a *app) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Crew.ShutdownTimeout)
	defer cancel()

	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown error", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// llmClients creates the task client and, when planning is on, the client
// serving the planning target. They are the same client unless planning
// needs a different provider or credentials.
func (a *app) llmClients(planning bool, target config.PlanningTarget) (task ports.LLMClient, planner ports.LLMClient, err error) {
	limits := llm.LimitConfig{
		MaxConcurrent:     a.cfg.LLM.MaxConcurrentRequests,
		RequestsPerSecond: a.cfg.LLM.RequestsPerSecond,
		Timeout:           a.cfg.LLM.RequestTimeout,
	}

	inner, err := llm.NewClient(&llm.Config{
		Provider:         a.cfg.LLM.Provider,
		APIKey:           a.cfg.LLM.APIKey,
		BaseURL:          a.cfg.LLM.BaseURL,
		DefaultModel:     a.cfg.LLM.DefaultModel,
		DefaultMaxTokens: a.cfg.LLM.DefaultMaxTokens,
		Logger:           a.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	task = llm.NewLimitedClient(inner, limits, a.metrics, a.logger)

	if !planning || target.SameClient(a.cfg.LLM) {
		return task, task, nil
	}

	if target.APIKey == "" {
		return nil, nil, fmt.Errorf("planning model %s needs the %s provider: set LLM_PLANNING_API_KEY", target.Model, target.Provider)
	}
	planningInner, err := llm.NewClient(&llm.Config{
		Provider:         target.Provider,
		APIKey:           target.APIKey,
		BaseURL:          target.BaseURL,
		DefaultModel:     target.Model,
		DefaultMaxTokens: a.cfg.LLM.DefaultMaxTokens,
		Logger:           a.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create planning LLM client: %w", err)
	}
	return task, llm.NewLimitedClient(planningInner, limits, a.metrics, a.logger), nil
}

// close flushes metrics and traces and releases connections
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Crew.ShutdownTimeout)
	defer cancel()

	var errs []error
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := prom.WriteToTextfile(path, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics textfile: %w", err))
		}
	}
	if err := a.eventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis client: %w", err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Error("shutdown error", zap.Error(err))
	}
	_ = a.logger.Sync()
	return err
}
