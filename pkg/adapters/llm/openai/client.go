// Package openai adapts the OpenAI chat completions API to ports.LLMClient.
// BaseURL lets it talk to any OpenAI-compatible endpoint.
package openai

import (
	"context"
	"fmt"

	"github.com/aescanero/dagocrew/pkg/domain"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	ProviderName = "openai"

	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096
)

// Options configures the client
type Options struct {
	APIKey           string
	BaseURL          string
	DefaultModel     string
	DefaultMaxTokens int
	Logger           *zap.Logger
}

// Client implements ports.LLMClient
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewClient creates a new OpenAI client
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = defaultModel
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = defaultMaxTokens
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Client{
		client:    sdk.NewClient(reqOpts...),
		model:     opts.DefaultModel,
		maxTokens: opts.DefaultMaxTokens,
		logger:    opts.Logger,
	}, nil
}

func (c *Client) Name() string { return ProviderName }

// GenerateCompletion sends the request as a chat completion
func (c *Client) GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error) {
	params := c.buildParams(req)

	c.logger.Debug("sending chat completion request",
		zap.String("model", string(params.Model)),
		zap.Int("messages", len(params.Messages)))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &domain.ProviderError{Provider: ProviderName, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: ProviderName, Err: fmt.Errorf("response has no choices")}
	}

	choice := resp.Choices[0]
	return &domain.LLMResponse{
		Content:    choice.Message.Content,
		Model:      resp.Model,
		Provider:   ProviderName,
		StopReason: string(choice.FinishReason),
		Usage: domain.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (c *Client) buildParams(req *domain.LLMRequest) sdk.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == domain.RoleAssistant {
			messages = append(messages, sdk.AssistantMessage(m.Content))
		} else {
			messages = append(messages, sdk.UserMessage(m.Content))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params
}
