package retrieval

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"playlist-rag-api/internal/domain/entity"
	apperrors "playlist-rag-api/pkg/errors"
)

func TestStoreProviderLoadsOnceForConcurrentCallers(t *testing.T) {
	repo := loadedRepo()
	repo.blockCh = make(chan struct{})
	p := NewStoreProvider(repo)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Current(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	// 等待第一个加载进入仓储后放行
	for repo.loads.Load() == 0 {
		runtime.Gosched()
	}
	close(repo.blockCh)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Current: %v", err)
	}
	if n := repo.loads.Load(); n < 1 || n > 8 {
		t.Fatalf("unexpected load count %d", n)
	}

	before := repo.loads.Load()
	if _, err := p.Current(context.Background()); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if repo.loads.Load() != before {
		t.Fatalf("cached store should not reload")
	}
}

func TestStoreProviderMissingAndInvalidate(t *testing.T) {
	repo := &memSegmentRepo{}
	p := NewStoreProvider(repo)

	if _, err := p.Current(context.Background()); !apperrors.HasCode(err, apperrors.CodeMissingStore) {
		t.Fatalf("err = %v, want MissingStore", err)
	}
	if p.Ready(context.Background()) {
		t.Fatalf("Ready should be false without a snapshot")
	}

	_ = repo.Save(context.Background(), []entity.Segment{seg(0, 1, 1, 0, "a")})
	st, err := p.Current(context.Background())
	if err != nil || st.Len() != 1 {
		t.Fatalf("Current after save: %v", err)
	}

	_ = repo.Clear(context.Background())
	p.Invalidate()
	if _, err := p.Current(context.Background()); !apperrors.HasCode(err, apperrors.CodeMissingStore) {
		t.Fatalf("err after invalidate = %v", err)
	}
}

func TestStoreProviderReplace(t *testing.T) {
	p := NewStoreProvider(&memSegmentRepo{})
	st := mustStore(t, []entity.Segment{seg(0, 1, 1, 0, "a"), seg(1, 2, 0, 1, "b")})
	p.Replace(st)

	got, err := p.Current(context.Background())
	if err != nil || got != st {
		t.Fatalf("Current = %p, %v", got, err)
	}
	segments, sources, err := p.Describe(context.Background())
	if err != nil || segments != 2 || sources != 2 {
		t.Fatalf("Describe = %d %d %v", segments, sources, err)
	}
}

func TestStoreProviderWrapsRepositoryFailure(t *testing.T) {
	p := NewStoreProvider(&memSegmentRepo{loadErr: errors.New("disk gone")})
	_, err := p.Current(context.Background())
	if !apperrors.HasCode(err, apperrors.CodeStorageError) {
		t.Fatalf("err = %v, want StorageError", err)
	}
}
