package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/pkg/logger"
)

const watchBuffer = 16

// StatusStore 导入状态镜像：最新快照存于一个键，变化通过 Pub/Sub 广播。
// 队列模式下 worker 写入，API 进程读取。
type StatusStore struct {
	client  *Client
	key     string
	channel string
}

// NewStatusStore 创建状态镜像
func NewStatusStore(client *Client) *StatusStore {
	return &StatusStore{
		client:  client,
		key:     client.Key("ingest", "status"),
		channel: client.Key("ingest", "events"),
	}
}

// Publish 写入并广播快照
func (s *StatusStore) Publish(ctx context.Context, snap ingest.Snapshot) error {
	ctx, span := tracer.Start(ctx, "redis.StatusStore.Publish")
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	pipe := s.client.rdb.TxPipeline()
	pipe.Set(ctx, s.key, data, 0)
	pipe.Publish(ctx, s.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Status 读取最新快照，不存在时为 idle
func (s *StatusStore) Status(ctx context.Context) (ingest.Snapshot, error) {
	data, err := s.client.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ingest.Snapshot{Phase: entity.PhaseIdle, Log: []string{}}, nil
	}
	if err != nil {
		return ingest.Snapshot{}, fmt.Errorf("read ingest status: %w", err)
	}
	var snap ingest.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ingest.Snapshot{}, fmt.Errorf("decode ingest status: %w", err)
	}
	return snap, nil
}

// Watch 订阅状态变化，首个元素为当前快照
func (s *StatusStore) Watch(ctx context.Context) (<-chan ingest.Snapshot, func(), error) {
	sub := s.client.rdb.Subscribe(ctx, s.channel)
	// 等待订阅确认，避免丢失紧随其后的消息
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe ingest events: %w", err)
	}

	current, err := s.Status(ctx)
	if err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan ingest.Snapshot, watchBuffer)
	out <- current

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap ingest.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					logger.Warn(watchCtx, "invalid ingest status message", "error", err.Error())
					continue
				}
				select {
				case out <- snap:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

var (
	_ ingest.StatusMirror = (*StatusStore)(nil)
	_ ingest.StatusReader = (*StatusStore)(nil)
	_ ingest.Lock         = (*IngestLock)(nil)
)
