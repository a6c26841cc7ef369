package llm

import (
	"context"
	"fmt"

	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/config"
)

// New 按配置创建生成客户端
func New(ctx context.Context, cfg *config.LLMConfig) (retrieval.Generator, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(cfg), nil
	case "openai":
		return NewEinoClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
