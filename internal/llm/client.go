package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shoe_pos/internal/config"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("assistant is not configured (set LLM_MODEL and LLM_API_KEY)")

// ToolCall is a function call requested by the model.
type ToolCall = openrouter.ToolCall

type Client struct {
	client  *openrouter.Client
	model   string
	logger  *zap.Logger
	enabled bool
}

// NewClient builds the assistant client. A missing model or key yields a
// disabled client rather than an error so the rest of the console works.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	logger = logger.Named("llm")
	model := strings.TrimSpace(cfg.LLMModel)
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)

	if model == "" || apiKey == "" {
		logger.Debug("assistant disabled",
			zap.Bool("has_model", model != ""),
			zap.Bool("has_api_key", apiKey != ""),
		)
		return &Client{model: model, logger: logger}
	}

	orCfg := openrouter.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.LLMBaseURL); base != "" {
		orCfg.BaseURL = base
	}
	orCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:  openrouter.NewClientWithConfig(*orCfg),
		model:   model,
		logger:  logger,
		enabled: true,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Chat sends the conversation with the POS tool set attached.
func (c *Client) Chat(ctx context.Context, messages []openrouter.ChatCompletionMessage, tools []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	if !c.Enabled() || c.client == nil {
		return openrouter.ChatCompletionResponse{}, ErrNotConfigured
	}

	c.logger.Debug("chat request",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
	)
	return c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
}
