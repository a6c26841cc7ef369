package retrieval

import "context"

// Embedder 向量化服务（port），由基础设施层实现。
// 返回的向量与输入一一对应且顺序一致；失败时返回 CodeUpstreamUnavailable 或 CodeUpstreamError。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator 文本生成服务（port），非流式。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
