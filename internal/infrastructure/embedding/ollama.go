// Package embedding 提供 Embedding 服务客户端
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"playlist-rag-api/internal/config"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/metrics"
)

const (
	serviceName       = "embedding service"
	defaultOllamaURL  = "http://localhost:11434"
	defaultOllamaEmbd = "bge-m3"
)

// OllamaClient 调用 Ollama 原生 /api/embed 接口
type OllamaClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient 创建 Ollama Embedding 客户端。
// 超时由调用方通过 context 控制，这里不设置 http.Client.Timeout。
func NewOllamaClient(cfg *config.EmbeddingConfig) *OllamaClient {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaEmbd
	}
	return &OllamaClient{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{},
	}
}

// Model 模型名
func (c *OllamaClient) Model() string { return c.model }

// Embed 一次请求嵌入全部文本，返回顺序与输入一致
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, span := otel.Tracer("embedding").Start(ctx, "embedding.ollama.Embed")
	defer span.End()
	span.SetAttributes(attribute.String("embedding.model", c.model), attribute.Int("embedding.inputs", len(texts)))

	start := time.Now()
	vecs, err := c.doEmbed(ctx, texts)
	observe("ollama", c.model, start, err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return vecs, nil
}

func (c *OllamaClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(&embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(serviceName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(serviceName, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, apperrors.UpstreamFailure(serviceName,
			fmt.Sprintf("status=%d body=%s", httpResp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, apperrors.UpstreamFailure(serviceName, "undecodable response body", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, apperrors.UpstreamFailure(serviceName,
			fmt.Sprintf("expected %d vectors, got %d", len(texts), len(resp.Embeddings)), nil)
	}
	return resp.Embeddings, nil
}

func observe(provider, model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingCallDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	metrics.EmbeddingCallTotal.WithLabelValues(provider, model, status).Inc()
}
