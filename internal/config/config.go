package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds all configuration for dagocrew
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration. An empty address selects in-memory adapters.
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Crew run configuration
	Crew CrewConfig

	// Metrics export
	Metrics MetricsConfig

	// Tracing
	Telemetry TelemetryConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Run state and event retention
	StateTTL      time.Duration `env:"REDIS_STATE_TTL" envDefault:"24h"`
	StreamMaxLen  int64         `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`
	ConsumerGroup string        `env:"REDIS_CONSUMER_GROUP" envDefault:"dagocrew"`
}

// Enabled reports whether Redis adapters should be used
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`
	BaseURL  string `env:"LLM_BASE_URL"`

	// Planning provider. An empty provider is inferred from the planning
	// model family, and an empty model uses the provider's default.
	PlanningProvider string `env:"LLM_PLANNING_PROVIDER"`
	PlanningAPIKey   string `env:"LLM_PLANNING_API_KEY"`
	PlanningBaseURL  string `env:"LLM_PLANNING_BASE_URL"`
	PlanningModel    string `env:"LLM_PLANNING_MODEL"`

	// Rate limiting
	MaxConcurrentRequests int           `env:"LLM_MAX_CONCURRENT_REQUESTS" envDefault:"10"`
	RequestsPerSecond     float64       `env:"LLM_REQUESTS_PER_SECOND" envDefault:"0"`
	RequestTimeout        time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	// Default model settings. An empty model uses the provider's default.
	DefaultModel       string  `env:"LLM_DEFAULT_MODEL"`
	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.7"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"4096"`
}

// Default models per provider
var defaultModels = map[string]string{
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
	ProviderOpenAI:    "gpt-4",
}

// ProviderForModel infers the provider serving a model from its family
// prefix. Unknown families return an empty string.
func ProviderForModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "chatgpt-"):
		return ProviderOpenAI
	case len(m) > 1 && m[0] == 'o' && m[1] >= '0' && m[1] <= '9':
		return ProviderOpenAI
	}
	return ""
}

// PlanningTarget is the provider, model and credentials used for planning
type PlanningTarget struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// SameClient reports whether the target can reuse the task client
func (t PlanningTarget) SameClient(l LLMConfig) bool {
	return t.Provider == l.Provider && t.APIKey == l.APIKey && t.BaseURL == l.BaseURL
}

// Planning resolves the planning target. model overrides PlanningModel when
// set. Without an explicit planning provider the provider follows the model
// family, falling back to the task provider for unknown families. Task
// credentials are only reused when the planning provider matches.
func (l LLMConfig) Planning(model string) (PlanningTarget, error) {
	if model == "" {
		model = l.PlanningModel
	}

	provider := l.PlanningProvider
	family := ProviderForModel(model)
	if provider == "" {
		provider = family
	}
	if provider == "" {
		provider = l.Provider
	}
	if family != "" && family != provider {
		return PlanningTarget{}, fmt.Errorf("planning model %q is not served by provider %s", model, provider)
	}
	if model == "" {
		model = defaultModels[provider]
	}

	target := PlanningTarget{Provider: provider, Model: model}
	if provider == l.Provider {
		target.APIKey, target.BaseURL = l.APIKey, l.BaseURL
	}
	if l.PlanningAPIKey != "" {
		target.APIKey = l.PlanningAPIKey
	}
	if l.PlanningBaseURL != "" {
		target.BaseURL = l.PlanningBaseURL
	}
	return target, nil
}

// CrewConfig holds crew run configuration
type CrewConfig struct {
	ExecutionTimeout time.Duration `env:"CREW_EXECUTION_TIMEOUT" envDefault:"3600s"` // 1 hour
	ShutdownTimeout  time.Duration `env:"CREW_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Concurrency      int           `env:"CREW_CONCURRENCY" envDefault:"1"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// TextfilePath receives the registry in text format after each command
	TextfilePath string `env:"METRICS_TEXTFILE"`
}

// TelemetryConfig holds OpenTelemetry tracing configuration
type TelemetryConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"dagocrew"`
	SampleRate  float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid. API keys are checked when
// a provider client is created, so validate-only commands work without one.
func (c *Config) Validate() error {
	// Validate LLM config
	if !supportedProvider(c.LLM.Provider) {
		return fmt.Errorf("unsupported LLM provider: %s (must be anthropic or openai)", c.LLM.Provider)
	}
	if c.LLM.PlanningProvider != "" && !supportedProvider(c.LLM.PlanningProvider) {
		return fmt.Errorf("unsupported planning LLM provider: %s (must be anthropic or openai)", c.LLM.PlanningProvider)
	}
	if family := ProviderForModel(c.LLM.DefaultModel); family != "" && family != c.LLM.Provider {
		return fmt.Errorf("default model %q is not served by provider %s", c.LLM.DefaultModel, c.LLM.Provider)
	}
	if _, err := c.LLM.Planning(""); err != nil {
		return err
	}
	if c.LLM.MaxConcurrentRequests < 1 {
		return fmt.Errorf("LLM max concurrent requests must be at least 1")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("LLM requests per second must not be negative")
	}
	if c.LLM.DefaultTemperature < 0 || c.LLM.DefaultTemperature > 2 {
		return fmt.Errorf("invalid LLM temperature: %v (must be between 0 and 2)", c.LLM.DefaultTemperature)
	}
	if c.LLM.DefaultMaxTokens < 1 {
		return fmt.Errorf("LLM max tokens must be at least 1")
	}

	// Validate crew config
	if c.Crew.Concurrency < 1 {
		return fmt.Errorf("crew concurrency must be at least 1")
	}
	if c.Crew.ExecutionTimeout < 0 {
		return fmt.Errorf("crew execution timeout must not be negative")
	}

	// Validate telemetry config
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("invalid telemetry sample rate: %v (must be between 0 and 1)", c.Telemetry.SampleRate)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

func supportedProvider(p string) bool {
	return p == ProviderAnthropic || p == ProviderOpenAI
}
