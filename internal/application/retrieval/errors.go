package retrieval

import "errors"

// RefusalMessage 问题与播放列表无关时的固定回复
const RefusalMessage = "I can only help with questions related to this playlist."

var (
	// ErrDimensionMismatch 向量维度与片段表不一致
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyStore 导入未产出任何片段
	ErrEmptyStore = errors.New("segment store is empty")
	// ErrInvalidStore 持久化片段表不满足 chunk_id 连续或文本非空等约束
	ErrInvalidStore = errors.New("invalid segment table")
)
