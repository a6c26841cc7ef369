package transcribe

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"

	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/domain/entity"
)

// OpenAITranslator 使用 OpenAI 兼容的 /audio/translations 接口（输出英文）
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAITranslator 创建转写器
func NewOpenAITranslator(cfg *config.OpenAIAudioConfig) *OpenAITranslator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranslator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Transcribe 翻译音频为英文片段
func (o *OpenAITranslator) Transcribe(ctx context.Context, audioPath string) ([]entity.TranscriptChunk, error) {
	ctx, span := otel.Tracer("transcribe").Start(ctx, "transcribe.openai.Transcribe")
	defer span.End()

	resp, err := o.client.CreateTranslation(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("openai translation failed: %w", err)
	}

	chunks := make([]entity.TranscriptChunk, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		chunks = append(chunks, entity.TranscriptChunk{Start: s.Start, End: s.End, Text: s.Text})
	}
	// 部分兼容实现只返回整段文本
	if len(chunks) == 0 && resp.Text != "" && resp.Duration > 0 {
		chunks = append(chunks, entity.TranscriptChunk{Start: 0, End: resp.Duration, Text: resp.Text})
	}
	return chunks, nil
}

// Close 无需释放资源
func (o *OpenAITranslator) Close() error { return nil }
