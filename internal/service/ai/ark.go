package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/emotalk/backend/internal/config"
)

// newArkFactory 使用调用方提供的 ARK API Key 构造火山方舟模型。
func newArkFactory(cfg config.AIConfig) ChatModelFactory {
	return func(ctx context.Context, modelID, credential string) (model.BaseChatModel, error) {
		if strings.TrimSpace(credential) == "" {
			return nil, fmt.Errorf("ark credential missing")
		}

		var maxTokens *int
		if cfg.MaxTokens != nil {
			val := *cfg.MaxTokens
			maxTokens = &val
		}

		// ark 默认重试 2 次，这里关闭
		retryTimes := 0
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.ArkBaseURL,
			Region:      cfg.ArkRegion,
			APIKey:      credential,
			Model:       modelID,
			MaxTokens:   maxTokens,
			Temperature: float32Ptr(cfg.Temperature),
			TopP:        float32Ptr(cfg.TopP),
			RetryTimes:  &retryTimes,
		})
		if err != nil {
			return nil, fmt.Errorf("ark chat model: %w", err)
		}
		return chatModel, nil
	}
}
