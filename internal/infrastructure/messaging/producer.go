package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream Stream, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish 发布消息
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(p.stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(p.stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// IngestJobMessage 导入任务消息
type IngestJobMessage struct {
	RunID       string    `json:"run_id"`
	PlaylistURL string    `json:"playlist_url"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
}

// ToRun 还原为导入记录（状态为 running）
func (m *IngestJobMessage) ToRun() *entity.IngestRun {
	run := entity.NewIngestRun(m.RunID, m.PlaylistURL)
	run.CreatedAt = m.CreatedAt
	run.Phase = entity.PhaseRunning
	started := m.StartedAt
	run.StartedAt = &started
	return run
}

// Dispatch 将已登记的导入投递到队列，实现 ingest.Dispatcher
func (p *Producer) Dispatch(ctx context.Context, run *entity.IngestRun) error {
	job := &IngestJobMessage{
		RunID:       run.ID,
		PlaylistURL: run.PlaylistURL,
		CreatedAt:   run.CreatedAt,
	}
	if run.StartedAt != nil {
		job.StartedAt = *run.StartedAt
	}

	msg, err := NewMessage(run.ID, MessageTypeIngest, job)
	if err != nil {
		return err
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}

	id, err := p.Publish(ctx, msg)
	if err != nil {
		return err
	}
	logger.Info(ctx, "ingest job enqueued", "stream_id", id, "run_id", run.ID)
	return nil
}
