package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/emotalk/backend/internal/config"
)

// ErrStreamingUnsupported 流式补全未启用。
var ErrStreamingUnsupported = errors.New("streaming completion is not supported")

// openAIChatModel adapts the official OpenAI client to eino's BaseChatModel.
type openAIChatModel struct {
	client      openai.Client
	model       string
	temperature *float32
	topP        *float32
	maxTokens   *int
}

var _ model.BaseChatModel = (*openAIChatModel)(nil)

func newOpenAIFactory(cfg config.AIConfig) ChatModelFactory {
	return func(_ context.Context, modelID, credential string) (model.BaseChatModel, error) {
		if strings.TrimSpace(credential) == "" {
			return nil, fmt.Errorf("openai credential missing")
		}

		// 不重试，失败直接交给调用方。
		opts := []option.RequestOption{
			option.WithAPIKey(credential),
			option.WithMaxRetries(0),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}

		return &openAIChatModel{
			client:      openai.NewClient(opts...),
			model:       modelID,
			temperature: float32Ptr(cfg.Temperature),
			topP:        float32Ptr(cfg.TopP),
			maxTokens:   cfg.MaxTokens,
		}, nil
	}
}

func (m *openAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.buildParams(input, opts...))
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: empty choices")
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream 会话按整轮回复处理，不支持流式输出。
func (m *openAIChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamingUnsupported
}

func (m *openAIChatModel) buildParams(input []*schema.Message, opts ...model.Option) openai.ChatCompletionNewParams {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.model,
		Temperature: m.temperature,
		TopP:        m.topP,
		MaxTokens:   m.maxTokens,
	}, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    *options.Model,
		Messages: toOpenAIMessages(input),
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.TopP != nil {
		params.TopP = openai.Float(float64(*options.TopP))
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}
	return params
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			params = append(params, openai.SystemMessage(msg.Content))
		case schema.User:
			params = append(params, openai.UserMessage(msg.Content))
		case schema.Assistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		}
	}
	return params
}
