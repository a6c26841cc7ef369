package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript 仅当持有者匹配时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IngestLock 跨进程导入锁（SET NX PX），TTL 兜底持有进程崩溃的情况
type IngestLock struct {
	client *Client
	key    string
	ttl    time.Duration
}

// NewIngestLock 创建导入锁
func NewIngestLock(client *Client, ttl time.Duration) *IngestLock {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &IngestLock{client: client, key: client.Key("ingest", "lock"), ttl: ttl}
}

// TryAcquire 非阻塞获取
func (l *IngestLock) TryAcquire(ctx context.Context, owner string) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.IngestLock.TryAcquire")
	defer span.End()

	ok, err := l.client.rdb.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("acquire ingest lock: %w", err)
	}
	return ok, nil
}

// Release 校验持有者后释放
func (l *IngestLock) Release(ctx context.Context, owner string) error {
	ctx, span := tracer.Start(ctx, "redis.IngestLock.Release")
	defer span.End()

	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, owner).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("release ingest lock: %w", err)
	}
	return nil
}

// Holder 当前持有者
func (l *IngestLock) Holder(ctx context.Context) (string, error) {
	owner, err := l.client.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}
