package dto

import (
	"playlist-rag-api/internal/application/retrieval"
)

// AskRequest 问答请求
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// AskResponse 问答响应
type AskResponse struct {
	Answer      string `json:"answer"`
	Kind        string `json:"kind,omitempty"`
	OutOfDomain bool   `json:"out_of_domain"`
}

// LegacyAskResponse 兼容路径 /ask 的响应体，不带统一包装
type LegacyAskResponse struct {
	Answer string `json:"answer"`
}

// HitResponse 单条召回片段
type HitResponse struct {
	ChunkID     int     `json:"chunk_id"`
	VideoNumber int     `json:"video_number"`
	VideoTitle  string  `json:"video_title"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

// RetrieveResponse 检索调试响应
type RetrieveResponse struct {
	Query       string        `json:"query"`
	Kind        string        `json:"kind"`
	MaxScore    float64       `json:"max_score"`
	OutOfDomain bool          `json:"out_of_domain"`
	Hits        []HitResponse `json:"hits"`
}

// ToAskResponse 转换问答结果
func ToAskResponse(a *retrieval.Answer) *AskResponse {
	return &AskResponse{
		Answer:      a.Text,
		Kind:        string(a.Kind),
		OutOfDomain: a.OutOfDomain,
	}
}

// ToRetrieveResponse 转换检索结果
func ToRetrieveResponse(r *retrieval.Retrieval) *RetrieveResponse {
	resp := &RetrieveResponse{
		Query: r.Query,
		Kind:  string(r.Kind),
		Hits:  make([]HitResponse, 0),
	}
	if r.Ranking == nil {
		return resp
	}
	resp.MaxScore = r.Ranking.MaxScore
	resp.OutOfDomain = r.Ranking.OutOfDomain
	for _, h := range r.Ranking.Hits {
		resp.Hits = append(resp.Hits, HitResponse{
			ChunkID:     h.Segment.ChunkID,
			VideoNumber: h.Segment.SourceIndex,
			VideoTitle:  h.Segment.SourceTitle,
			Start:       h.Segment.StartTime,
			End:         h.Segment.EndTime,
			Text:        h.Segment.Text,
			Score:       h.Score,
		})
	}
	return resp
}
