package retrieval

import "playlist-rag-api/internal/domain/entity"

// QuestionKind 问题类型，决定 Prompt 的形态
type QuestionKind string

const (
	// KindLocation 询问内容出现在哪个视频、哪个时间段
	KindLocation QuestionKind = "location"
	// KindConceptual 询问概念本身
	KindConceptual QuestionKind = "conceptual"
)

// Hit 一条召回结果
type Hit struct {
	Segment entity.Segment
	Score   float64
}

// Ranking 相似度排序结果
type Ranking struct {
	Hits     []Hit
	MaxScore float64
	// OutOfDomain 最高分低于阈值，Hits 为空
	OutOfDomain bool
}

// SourceSegments 单个视频的转写片段及其向量，顺序一一对应
type SourceSegments struct {
	Source     entity.Source
	Chunks     []entity.TranscriptChunk
	Embeddings [][]float32
}

// Answer 问答结果
type Answer struct {
	Text        string
	Kind        QuestionKind
	OutOfDomain bool
	Hits        []Hit
}

// Retrieval 不经过生成的检索结果（调试接口使用）
type Retrieval struct {
	Query   string
	Kind    QuestionKind
	Ranking *Ranking
}
