// Package llm 提供生成模型客户端
package llm

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
	serviceName        = "generation service"
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaClient 调用 Ollama /api/generate，非流式
type OllamaClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewOllamaClient 创建 Ollama 生成客户端
func NewOllamaClient(cfg *config.LLMConfig) *OllamaClient {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{},
	}
}

// Generate 生成回答
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "llm.ollama.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model), attribute.Int("llm.prompt_chars", len(prompt)))

	start := time.Now()
	text, err := c.doGenerate(ctx, prompt)
	observe("ollama", c.model, start, err)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return text, nil
}

func (c *OllamaClient) doGenerate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(&generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", apperrors.UpstreamUnavailable(serviceName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.UpstreamUnavailable(serviceName, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return "", apperrors.UpstreamFailure(serviceName,
			fmt.Sprintf("status=%d body=%s", httpResp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", apperrors.UpstreamFailure(serviceName, "undecodable response body", err)
	}
	return resp.Response, nil
}

func observe(provider, model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	metrics.LLMCallTotal.WithLabelValues(provider, model, status).Inc()
}
