package retrieval

import (
	"fmt"
	"math"
	"sort"
	"time"

	"playlist-rag-api/pkg/metrics"
)

const (
	DefaultSimilarityThreshold = 0.30
	DefaultTopK                = 20
)

// Ranker 余弦相似度排序与相关性门限
type Ranker struct {
	threshold float64
	topK      int
}

// NewRanker 创建 Ranker，topK <= 0 时使用默认值
func NewRanker(threshold float64, topK int) *Ranker {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Ranker{threshold: threshold, topK: topK}
}

// Threshold 相关性门限
func (r *Ranker) Threshold() float64 {
	return r.threshold
}

// Rank 计算查询向量与全部片段的余弦相似度。
// 最高分低于门限时返回 OutOfDomain；否则按分数降序取前 K 条，同分按 chunk_id 升序。
func (r *Ranker) Rank(query []float32, store *Store) (*Ranking, error) {
	if store == nil || store.Len() == 0 {
		return &Ranking{OutOfDomain: true}, nil
	}
	if len(query) != store.Dim() {
		return nil, fmt.Errorf("%w: query has %d dims, store has %d", ErrDimensionMismatch, len(query), store.Dim())
	}

	start := time.Now()
	scores := cosineScores(query, store)
	metrics.RankingDuration.Observe(time.Since(start).Seconds())

	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	metrics.RankingMaxScore.Observe(maxScore)

	if maxScore < r.threshold {
		return &Ranking{MaxScore: maxScore, OutOfDomain: true}, nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// 下标即 chunk_id
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return ia < ib
	})

	k := r.topK
	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		seg, _ := store.Segment(order[i])
		hits[i] = Hit{Segment: seg, Score: scores[order[i]]}
	}

	return &Ranking{Hits: hits, MaxScore: maxScore}, nil
}

// cosineScores 单次遍历矩阵；零范数的行或查询得分为 0
func cosineScores(query []float32, store *Store) []float64 {
	matrix, norms := store.Matrix()
	dim := store.Dim()
	qn := norm(query)

	scores := make([]float64, len(norms))
	if qn == 0 {
		return scores
	}
	for i := range norms {
		if norms[i] == 0 {
			continue
		}
		row := matrix[i*dim : (i+1)*dim]
		var dot float64
		for j, x := range row {
			dot += float64(x) * float64(query[j])
		}
		scores[i] = dot / (qn * norms[i])
	}
	return scores
}
