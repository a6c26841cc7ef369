package retrieval

import (
	"fmt"
	"math"
	"strings"

	"playlist-rag-api/internal/domain/entity"
)

// Store 只读片段表
// 构建后不再修改，可被并发查询共享；导入完成时整体替换。
type Store struct {
	segments []entity.Segment
	matrix   []float32 // 行主序，len = len(segments) * dim
	norms    []float64
	dim      int
}

// BuildStore 按视频顺序、再按片段顺序分配从 0 开始的连续 chunk_id
func BuildStore(sources []SourceSegments) (*Store, error) {
	total := 0
	for _, src := range sources {
		if len(src.Chunks) != len(src.Embeddings) {
			return nil, fmt.Errorf("source %d: %d chunks but %d embeddings", src.Source.Index, len(src.Chunks), len(src.Embeddings))
		}
		total += len(src.Chunks)
	}
	if total == 0 {
		return nil, ErrEmptyStore
	}

	segments := make([]entity.Segment, 0, total)
	for _, src := range sources {
		for i, c := range src.Chunks {
			segments = append(segments, entity.Segment{
				ChunkID:     len(segments),
				SourceIndex: src.Source.Index,
				SourceTitle: src.Source.Title,
				StartTime:   c.Start,
				EndTime:     c.End,
				Text:        c.Text,
				Embedding:   src.Embeddings[i],
			})
		}
	}
	return newStore(segments)
}

// NewStoreFromSegments 从持久化的片段表重建，要求按 chunk_id 升序且连续
func NewStoreFromSegments(segments []entity.Segment) (*Store, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyStore
	}
	for i, s := range segments {
		if s.ChunkID != i {
			return nil, fmt.Errorf("%w: chunk_id %d at position %d", ErrInvalidStore, s.ChunkID, i)
		}
		if strings.TrimSpace(s.Text) == "" {
			return nil, fmt.Errorf("%w: chunk %d has empty text", ErrInvalidStore, i)
		}
	}
	cp := make([]entity.Segment, len(segments))
	copy(cp, segments)
	return newStore(cp)
}

func newStore(segments []entity.Segment) (*Store, error) {
	dim := len(segments[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: chunk 0 has no embedding", ErrDimensionMismatch)
	}

	matrix := make([]float32, 0, len(segments)*dim)
	norms := make([]float64, len(segments))
	for i, s := range segments {
		if len(s.Embedding) != dim {
			return nil, fmt.Errorf("%w: chunk %d has %d dims, expected %d", ErrDimensionMismatch, s.ChunkID, len(s.Embedding), dim)
		}
		matrix = append(matrix, s.Embedding...)
		norms[i] = norm(s.Embedding)
	}

	return &Store{
		segments: segments,
		matrix:   matrix,
		norms:    norms,
		dim:      dim,
	}, nil
}

// All 返回片段副本（向量切片与 Store 共享，调用方不得修改）
func (s *Store) All() []entity.Segment {
	out := make([]entity.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len 片段数量
func (s *Store) Len() int {
	return len(s.segments)
}

// Dim 向量维度
func (s *Store) Dim() int {
	return s.dim
}

// Segment 按 chunk_id 取片段
func (s *Store) Segment(chunkID int) (entity.Segment, bool) {
	if chunkID < 0 || chunkID >= len(s.segments) {
		return entity.Segment{}, false
	}
	return s.segments[chunkID], true
}

// Matrix 返回行主序向量矩阵及每行范数，只读
func (s *Store) Matrix() ([]float32, []float64) {
	return s.matrix, s.norms
}

// SourceCount 片段表覆盖的视频数
func (s *Store) SourceCount() int {
	seen := make(map[int]struct{})
	for _, seg := range s.segments {
		seen[seg.SourceIndex] = struct{}{}
	}
	return len(seen)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
