package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/embedding"

	"playlist-rag-api/internal/config"
	einoobs "playlist-rag-api/internal/observability/eino"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/tracer"
)

// EinoClient 通过 Eino OpenAI 适配器调用 OpenAI 兼容的 Embedding 接口
type EinoClient struct {
	embedder embedding.Embedder
	model    string
}

// NewEinoClient 创建基于 Eino 的 Embedding 客户端
func NewEinoClient(ctx context.Context, cfg *config.EmbeddingConfig) (*EinoClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	return &EinoClient{embedder: embedder, model: cfg.Model}, nil
}

// Model 模型名
func (c *EinoClient) Model() string { return c.model }

// Embed 嵌入文本并转换为 float32
func (c *EinoClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, span := tracer.Start(ctx, "embedding.openai.Embed")
	defer span.End()

	ctx = callbacks.InitCallbacks(ctx, einoobs.RunInfo("embed", components.ComponentOfEmbedding))
	start := time.Now()
	v64, err := c.embedder.EmbedStrings(ctx, texts)
	if err == nil && len(v64) != len(texts) {
		err = apperrors.UpstreamFailure(serviceName,
			fmt.Sprintf("expected %d vectors, got %d", len(texts), len(v64)), nil)
	} else if err != nil {
		err = classify(err)
	}
	observe("openai", c.model, start, err)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}

	out := make([][]float32, 0, len(v64))
	for _, vec := range v64 {
		f32 := make([]float32, 0, len(vec))
		for _, x := range vec {
			f32 = append(f32, float32(x))
		}
		out = append(out, f32)
	}
	return out, nil
}

// classify 区分传输层失败与服务端错误
func classify(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.UpstreamUnavailable(serviceName, err)
	}
	return apperrors.UpstreamFailure(serviceName, err.Error(), err)
}
