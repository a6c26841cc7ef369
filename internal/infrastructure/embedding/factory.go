package embedding

import (
	"context"
	"fmt"

	"playlist-rag-api/internal/config"
)

// New 按配置创建 Embedding 客户端
func New(ctx context.Context, cfg *config.EmbeddingConfig) (Client, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(cfg), nil
	case "openai":
		return NewEinoClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
