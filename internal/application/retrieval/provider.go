package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"playlist-rag-api/internal/domain/repository"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
)

// StoreProvider 持有当前片段表
// 首次查询时从仓储懒加载，并发请求只触发一次加载；导入完成或重置时替换/失效。
type StoreProvider struct {
	repo repository.SegmentRepository

	mu    sync.RWMutex
	store *Store
	gen   uint64

	group singleflight.Group
}

// NewStoreProvider 创建 StoreProvider
func NewStoreProvider(repo repository.SegmentRepository) *StoreProvider {
	return &StoreProvider{repo: repo}
}

// Current 返回当前片段表；尚未导入时返回 CodeMissingStore
func (p *StoreProvider) Current(ctx context.Context) (*Store, error) {
	p.mu.RLock()
	st, gen := p.store, p.gen
	p.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	v, err, _ := p.group.Do("store", func() (any, error) {
		// 首个调用方取消不应影响其他等待者
		return p.load(context.WithoutCancel(ctx), gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (p *StoreProvider) load(ctx context.Context, gen uint64) (*Store, error) {
	segments, err := p.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoSnapshot) {
			return nil, apperrors.ErrMissingStore
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to load segment table")
	}

	st, err := NewStoreFromSegments(segments)
	if err != nil {
		if errors.Is(err, ErrEmptyStore) {
			return nil, apperrors.ErrMissingStore
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "persisted segment table is invalid")
	}

	p.mu.Lock()
	// 加载期间发生过替换或失效时丢弃本次结果
	if p.gen == gen {
		p.store = st
		metrics.StoreSegments.Set(float64(st.Len()))
	}
	p.mu.Unlock()

	logger.Info(ctx, "segment store loaded", "segments", st.Len(), "dim", st.Dim())
	return st, nil
}

// Replace 导入完成后直接切换到新片段表
func (p *StoreProvider) Replace(st *Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = st
	p.gen++
	if st != nil {
		metrics.StoreSegments.Set(float64(st.Len()))
	} else {
		metrics.StoreSegments.Set(0)
	}
}

// Invalidate 丢弃内存中的片段表，下次查询重新从仓储加载
func (p *StoreProvider) Invalidate() {
	p.Replace(nil)
}

// Ready 是否存在可用片段表（必要时触发加载）
func (p *StoreProvider) Ready(ctx context.Context) bool {
	_, err := p.Current(ctx)
	return err == nil
}

// Describe 返回片段表概况，用于状态接口
func (p *StoreProvider) Describe(ctx context.Context) (segments, sources int, err error) {
	st, err := p.Current(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("describe store: %w", err)
	}
	return st.Len(), st.SourceCount(), nil
}
