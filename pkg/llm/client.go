// Package llm provides the OpenAI-compatible completion client used for
// content generation and the admin agent.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to an OpenAI-compatible completion endpoint.
type Client struct {
	client   *openai.Client
	endpoint string
	model    string
	allowed  []string
	logger   *zap.Logger
}

// Config holds configuration for creating a completion client.
type Config struct {
	Endpoint      string // Base URL, e.g. "https://api.groq.com/openai/v1"
	Model         string // Default model name
	APIKey        string // Optional for local endpoints
	AllowedModels []string
}

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// NewClient creates a new OpenAI-compatible completion client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		allowed:  cfg.AllowedModels,
		logger:   logger.Named("llm"),
	}, nil
}

// DefaultModel returns the configured default model name.
func (c *Client) DefaultModel() string {
	return c.model
}

// ResolveModel validates a requested model against the allow-list, falling
// back to the default for anything unknown. An empty allow-list accepts any
// non-empty model.
func (c *Client) ResolveModel(requested string) string {
	if requested == "" {
		return c.model
	}
	if len(c.allowed) == 0 {
		return requested
	}
	for _, m := range c.allowed {
		if m == requested {
			return requested
		}
	}
	c.logger.Debug("Requested model not in allow-list, using default",
		zap.String("requested", requested),
		zap.String("default", c.model))
	return c.model
}

// Complete generates a single chat completion and returns the text content.
// An empty model uses the default.
func (c *Client) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	model = c.ResolveModel(model)

	c.logger.Debug("Completion request",
		zap.String("model", model),
		zap.Int("message_count", len(messages)))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		c.logger.Error("Completion request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("Completion request finished",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}
