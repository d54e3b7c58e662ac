package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/emotalk/backend/internal/config"
	"github.com/zhouzirui/emotalk/backend/internal/model/chat"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

var (
	// ErrUpstream 远端补全调用失败或超时。
	ErrUpstream = errors.New("upstream completion failed")
	// ErrUnsupportedModel 模型不在配置的可选列表中。
	ErrUnsupportedModel = errors.New("unsupported model")
)

// Completer sends a full message history to a chat-completion endpoint and
// returns the top reply.
type Completer interface {
	Complete(ctx context.Context, history []chat.Message, modelID, credential string) (string, error)
}

// ChatModelFactory 使用调用方凭证为单次调用构造模型实例。
type ChatModelFactory func(ctx context.Context, modelID, credential string) (model.BaseChatModel, error)

// Client 根据模型 ID 选择服务商并完成一次补全调用。
type Client struct {
	cfg       config.AIConfig
	providers map[string]ChatModelFactory
}

// Option customises a Client.
type Option func(*Client)

// WithProvider 注册或覆盖某个服务商的模型工厂。
func WithProvider(name string, factory ChatModelFactory) Option {
	return func(c *Client) {
		c.providers[name] = factory
	}
}

// NewClient creates a completion client with the OpenAI and Ark providers.
func NewClient(cfg config.AIConfig, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		providers: map[string]ChatModelFactory{
			config.ProviderOpenAI: newOpenAIFactory(cfg),
			config.ProviderArk:    newArkFactory(cfg),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models 返回可选模型列表。
func (c *Client) Models() []string {
	return c.cfg.AllModels()
}

// Complete sends the whole history, unmodified, and returns the first choice.
// Errors are never retried.
func (c *Client) Complete(ctx context.Context, history []chat.Message, modelID, credential string) (string, error) {
	provider, ok := c.cfg.ProviderFor(modelID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, modelID)
	}
	factory, ok := c.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: no provider %q for %q", ErrUnsupportedModel, provider, modelID)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	chatModel, err := factory(ctx, modelID, credential)
	if err != nil {
		return "", fmt.Errorf("%w: create %s model: %w", ErrUpstream, provider, err)
	}

	start := time.Now()
	response, err := chatModel.Generate(ctx, toSchemaMessages(history))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, modelID, err)
	}
	if response == nil {
		return "", fmt.Errorf("%w: %s returned no choices", ErrUpstream, modelID)
	}

	log.Infow("completion finished",
		"provider", provider,
		"model", modelID,
		"history", len(history),
		"reply_length", len(response.Content),
		"latency", time.Since(start),
	)
	return response.Content, nil
}

func toSchemaMessages(history []chat.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			messages = append(messages, schema.SystemMessage(msg.Content))
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return messages
}

func float32Ptr(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}
