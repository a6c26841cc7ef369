package ingest

import (
	"context"
	"sync"
)

// Lock 保证同一时间只有一个导入或重置在执行
type Lock interface {
	// TryAcquire 非阻塞获取，已被占用时返回 false
	TryAcquire(ctx context.Context, owner string) (bool, error)
	// Release 仅当 owner 匹配时释放
	Release(ctx context.Context, owner string) error
	// Holder 当前持有者，空串表示未被持有
	Holder(ctx context.Context) (string, error)
}

// LocalLock 进程内锁
type LocalLock struct {
	mu    sync.Mutex
	owner string
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryAcquire(_ context.Context, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != "" {
		return false, nil
	}
	l.owner = owner
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == owner {
		l.owner = ""
	}
	return nil
}

func (l *LocalLock) Holder(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner, nil
}
