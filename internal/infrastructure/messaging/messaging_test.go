package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"playlist-rag-api/internal/domain/entity"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestBackoffConfig_CalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.retry); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestStream_Names(t *testing.T) {
	s := StreamIngest.WithPrefix("prag:")
	if s != "prag:stream:playlist:ingest" {
		t.Fatalf("stream = %q", s)
	}
	if s.DLQStream() != "dlq:prag:stream:playlist:ingest" {
		t.Fatalf("dlq = %q", s.DLQStream())
	}
}

func TestDispatchAndConsume(t *testing.T) {
	rdb := newTestRedis(t)
	producer := NewProducer(rdb, StreamIngest, 100)

	run := entity.NewIngestRun("run-1", "https://www.youtube.com/playlist?list=PL1")
	run.Start()

	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-1")
	if err := producer.Dispatch(ctx, run); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	consumer := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamIngest,
		Group:        ConsumerGroupIngestWorker,
		ConsumerName: "worker-1",
		BlockTimeout: 50 * time.Millisecond,
	})

	got := make(chan *IngestJobMessage, 1)
	var reqID string
	consumer.RegisterHandler(MessageTypeIngest, func(ctx context.Context, msg *Message) error {
		var job IngestJobMessage
		if err := msg.UnmarshalPayload(&job); err != nil {
			return err
		}
		reqID = msg.GetMetadata("request_id")
		got <- &job
		return nil
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(runCtx) }()

	select {
	case job := <-got:
		restored := job.ToRun()
		if restored.ID != "run-1" || restored.PlaylistURL != run.PlaylistURL {
			t.Fatalf("restored run = %+v", restored)
		}
		if restored.Phase != entity.PhaseRunning || restored.StartedAt == nil {
			t.Fatalf("restored run should be running: %+v", restored)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message not consumed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("consumer did not stop")
	}

	if reqID != "req-1" {
		t.Fatalf("request_id metadata = %q", reqID)
	}
	pending, err := rdb.XPending(context.Background(), string(StreamIngest), string(ConsumerGroupIngestWorker)).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("pending = %d, want 0 after ack", pending.Count)
	}
}

func TestConsumer_FailedMessageMovesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	producer := NewProducer(rdb, StreamIngest, 100)

	consumer := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamIngest,
		Group:        ConsumerGroupIngestWorker,
		ConsumerName: "worker-1",
		BlockTimeout: 20 * time.Millisecond,
		RetryLimit:   1,
	})
	consumer.RegisterHandler(MessageTypeIngest, func(ctx context.Context, msg *Message) error {
		return errors.New("boom")
	})
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}

	msg, err := NewMessage("run-2", MessageTypeIngest, IngestJobMessage{RunID: "run-2"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if _, err := producer.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := rdb.XLen(ctx, StreamIngest.DLQStream()).Result()
		if err == nil && n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dlq length = %d, err = %v", n, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestConsumer_InvalidMessageIsAcked(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	consumer := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamIngest,
		Group:        ConsumerGroupIngestWorker,
		ConsumerName: "worker-1",
		BlockTimeout: 20 * time.Millisecond,
	})
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	// 重复创建不报错
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup again: %v", err)
	}

	if err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: string(StreamIngest),
		Values: map[string]interface{}{"data": "not json"},
	}).Err(); err != nil {
		t.Fatalf("XAdd: %v", err)
	}

	handled := make(chan struct{}, 1)
	consumer.RegisterHandler(MessageTypeIngest, func(ctx context.Context, msg *Message) error {
		handled <- struct{}{}
		return nil
	})
	msg, _ := NewMessage("run-3", MessageTypeIngest, IngestJobMessage{RunID: "run-3"})
	if _, err := NewProducer(rdb, StreamIngest, 0).Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	// 按顺序消费，合法消息被处理时非法消息已确认
	select {
	case <-handled:
	case <-time.After(3 * time.Second):
		t.Fatal("valid message not consumed")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		pending, err := rdb.XPending(ctx, string(StreamIngest), string(ConsumerGroupIngestWorker)).Result()
		if err == nil && pending.Count == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("messages still pending: %+v err=%v", pending, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

type fakeExecutor struct {
	runs []*entity.IngestRun
	err  error
}

func (f *fakeExecutor) Execute(_ context.Context, run *entity.IngestRun) error {
	f.runs = append(f.runs, run)
	return f.err
}

func TestIngestJobHandler(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExecutor{}
	handler := NewIngestJobHandler(exec)

	msg, _ := NewMessage("run-9", MessageTypeIngest, IngestJobMessage{RunID: "run-9", PlaylistURL: "https://example.com/list"})
	if err := handler(ctx, msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(exec.runs) != 1 || exec.runs[0].ID != "run-9" {
		t.Fatalf("runs = %+v", exec.runs)
	}

	bad, _ := NewMessage("x", MessageTypeIngest, IngestJobMessage{})
	if err := handler(ctx, bad); err == nil {
		t.Fatal("expected error for incomplete job")
	}

	exec.err = apperrors.ErrIngestInProgress
	if err := handler(ctx, msg); err != nil {
		t.Fatalf("busy lock should drop the job, got %v", err)
	}
}
