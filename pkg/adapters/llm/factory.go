package llm

import (
	"fmt"

	"github.com/aescanero/dagocrew/pkg/adapters/llm/anthropic"
	"github.com/aescanero/dagocrew/pkg/adapters/llm/openai"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"go.uber.org/zap"
)

// Supported providers
const (
	ProviderAnthropic = anthropic.ProviderName
	ProviderOpenAI    = openai.ProviderName
)

// Config holds LLM client configuration
type Config struct {
	Provider         string
	APIKey           string
	BaseURL          string
	DefaultModel     string
	DefaultMaxTokens int
	Logger           *zap.Logger
}

// NewClient creates a new LLM client based on provider
func NewClient(cfg *Config) (ports.LLMClient, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return anthropic.NewClient(anthropic.Options{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			DefaultModel:     cfg.DefaultModel,
			DefaultMaxTokens: cfg.DefaultMaxTokens,
			Logger:           cfg.Logger,
		})
	case ProviderOpenAI:
		return openai.NewClient(openai.Options{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			DefaultModel:     cfg.DefaultModel,
			DefaultMaxTokens: cfg.DefaultMaxTokens,
			Logger:           cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, cfg.Provider)
	}
}
