package retrieval

import (
	"context"
	"sync"
	"sync/atomic"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
)

type memSegmentRepo struct {
	mu       sync.Mutex
	segments []entity.Segment
	loads    atomic.Int32
	loadErr  error
	blockCh  chan struct{}
}

func (r *memSegmentRepo) Save(_ context.Context, segments []entity.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append([]entity.Segment(nil), segments...)
	return nil
}

func (r *memSegmentRepo) Load(_ context.Context) ([]entity.Segment, error) {
	r.loads.Add(1)
	if r.blockCh != nil {
		<-r.blockCh
	}
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.segments) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	return append([]entity.Segment(nil), r.segments...), nil
}

func (r *memSegmentRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = nil
	return nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   atomic.Int32
	prompts []string
	mu      sync.Mutex
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply, f.err
}

// seg 构造二维向量片段，方便直观控制余弦相似度
func seg(id, source int, x, y float32, text string) entity.Segment {
	return entity.Segment{
		ChunkID:     id,
		SourceIndex: source,
		SourceTitle: "Video " + string(rune('A'+source-1)),
		StartTime:   float64(id) * 10,
		EndTime:     float64(id)*10 + 5,
		Text:        text,
		Embedding:   []float32{x, y},
	}
}
