package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"playlist-rag-api/internal/config"
	einoobs "playlist-rag-api/internal/observability/eino"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/tracer"
)

// EinoClient 通过 Eino OpenAI 适配器调用 OpenAI 兼容的 Chat 接口
type EinoClient struct {
	chat  model.BaseChatModel
	model string
}

// NewEinoClient 创建 Eino ChatModel 客户端
func NewEinoClient(ctx context.Context, cfg *config.LLMConfig) (*EinoClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("llm endpoint is required")
	}

	cmCfg := &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.Endpoint,
		Model:       cfg.Model,
		Temperature: ptrFloat32(float32(cfg.Temperature)),
		Timeout:     cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		cmCfg.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, cmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model: %w", err)
	}
	return &EinoClient{chat: chatModel, model: cfg.Model}, nil
}

// Generate 以单条用户消息调用模型
func (c *EinoClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.openai.Generate")
	defer span.End()

	ctx = callbacks.InitCallbacks(ctx, einoobs.RunInfo("answer", components.ComponentOfChatModel))
	start := time.Now()
	msg, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		err = classify(err)
	} else if msg == nil {
		err = apperrors.UpstreamFailure(serviceName, "empty completion", nil)
	}
	observe("openai", c.model, start, err)
	if err != nil {
		tracer.Fail(span, err)
		return "", err
	}
	return msg.Content, nil
}

func classify(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.UpstreamUnavailable(serviceName, err)
	}
	return apperrors.UpstreamFailure(serviceName, err.Error(), err)
}

func ptrFloat32(f float32) *float32 {
	return &f
}
