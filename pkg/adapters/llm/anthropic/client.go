// Package anthropic adapts the Anthropic Messages API to ports.LLMClient.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aescanero/dagocrew/pkg/domain"
	"go.uber.org/zap"
)

const (
	// ProviderName identifies this adapter in metrics and errors
	ProviderName = "anthropic"

	defaultModel     = "claude-3-5-sonnet-20241022"
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

// Client implements ports.LLMClient on top of the official SDK
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewClient creates a new Anthropic client
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
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

// Name returns the provider name
func (c *Client) Name() string { return ProviderName }

// GenerateCompletion sends the request to the Messages API
func (c *Client) GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error) {
	params := c.buildParams(req)

	c.logger.Debug("sending completion request",
		zap.String("model", string(params.Model)),
		zap.Int("messages", len(params.Messages)))

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &domain.ProviderError{Provider: ProviderName, Err: err}
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &domain.LLMResponse{
		Content:    content.String(),
		Model:      string(msg.Model),
		Provider:   ProviderName,
		StopReason: string(msg.StopReason),
		Usage: domain.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

func (c *Client) buildParams(req *domain.LLMRequest) sdk.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			messages = append(messages, sdk.NewAssistantMessage(block))
		} else {
			messages = append(messages, sdk.NewUserMessage(block))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params
}
