package ingest

import (
	"context"
	"sync"

	"playlist-rag-api/internal/domain/entity"
)

// MemoryRunRepository 未配置 PostgreSQL 时使用的进程内导入记录
type MemoryRunRepository struct {
	mu    sync.Mutex
	limit int
	runs  []*entity.IngestRun // 按创建时间升序
}

// NewMemoryRunRepository 创建有界的进程内导入记录
func NewMemoryRunRepository(limit int) *MemoryRunRepository {
	if limit <= 0 {
		limit = 20
	}
	return &MemoryRunRepository{limit: limit}
}

func (r *MemoryRunRepository) Create(_ context.Context, run *entity.IngestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs = append(r.runs, &cp)
	if over := len(r.runs) - r.limit; over > 0 {
		r.runs = append([]*entity.IngestRun(nil), r.runs[over:]...)
	}
	return nil
}

func (r *MemoryRunRepository) Update(ctx context.Context, run *entity.IngestRun) error {
	r.mu.Lock()
	for i, existing := range r.runs {
		if existing.ID == run.ID {
			cp := *run
			r.runs[i] = &cp
			r.mu.Unlock()
			return nil
		}
	}
	r.mu.Unlock()
	return r.Create(ctx, run)
}

func (r *MemoryRunRepository) ListRecent(_ context.Context, limit int) ([]*entity.IngestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.runs) {
		limit = len(r.runs)
	}
	out := make([]*entity.IngestRun, 0, limit)
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.runs[i]
		out = append(out, &cp)
	}
	return out, nil
}
