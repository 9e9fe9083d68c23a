package llm

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/retry"
)

const anthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates an Anthropic-backed completion client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger.Named("llm"),
	}, nil
}

// Complete implements Completer.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := float32(req.Temperature)

	c.logger.Debug("completion request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(req.User)))

	start := time.Now()
	resp, err := retry.DoWithResult(ctx, nil, func() (anthropic.MessagesResponse, error) {
		return c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:       anthropic.Model(c.model),
			System:      req.System,
			MaxTokens:   anthropicMaxTokens,
			Temperature: &temperature,
			Messages: []anthropic.Message{
				anthropic.NewUserTextMessage(req.User),
			},
		})
	})
	if err != nil {
		c.logger.Error("completion request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("create messages: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	c.logger.Debug("completion request done",
		zap.Duration("elapsed", time.Since(start)))

	return resp.GetFirstContentText(), nil
}

// Model implements Completer.
func (c *AnthropicClient) Model() string {
	return c.model
}

var _ Completer = (*AnthropicClient)(nil)
