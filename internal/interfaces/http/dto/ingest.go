package dto

import (
	"time"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/domain/entity"
)

// IngestRequest 导入请求
type IngestRequest struct {
	URL string `json:"url" binding:"required"`
}

// IngestResponse 导入受理/完成响应
type IngestResponse struct {
	RunID   string `json:"run_id"`
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
}

// StatusResponse 导入状态
type StatusResponse struct {
	Phase      string     `json:"phase"`
	Message    string     `json:"message"`
	Log        []string   `json:"log"`
	Ready      bool       `json:"ready"`
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SkippedSourceResponse 被跳过的视频
type SkippedSourceResponse struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// RunResponse 导入历史记录
type RunResponse struct {
	ID           string                  `json:"id"`
	PlaylistURL  string                  `json:"playlist_url"`
	Phase        string                  `json:"phase"`
	TotalSources int                     `json:"total_sources"`
	Processed    int                     `json:"processed_sources"`
	SegmentCount int                     `json:"segment_count"`
	Skipped      []SkippedSourceResponse `json:"skipped"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	StartedAt    string                  `json:"started_at,omitempty"`
	FinishedAt   string                  `json:"finished_at,omitempty"`
	DurationMs   int64                   `json:"duration_ms"`
}

// RunListResponse 导入历史列表
type RunListResponse struct {
	Runs []*RunResponse `json:"runs"`
}

// SourceResponse 已导入视频
type SourceResponse struct {
	VideoNumber int    `json:"video_number"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
}

// SourceListResponse 视频列表
type SourceListResponse struct {
	Sources []SourceResponse `json:"sources"`
}

// ToStatusResponse 转换状态
func ToStatusResponse(st *ingest.Status) *StatusResponse {
	log := st.Log
	if log == nil {
		log = []string{}
	}
	return &StatusResponse{
		Phase:      string(st.Phase),
		Message:    st.Message,
		Log:        log,
		Ready:      st.Ready,
		RunID:      st.RunID,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
}

// ToRunResponse 转换导入记录
func ToRunResponse(r *entity.IngestRun) *RunResponse {
	if r == nil {
		return nil
	}
	resp := &RunResponse{
		ID:           r.ID,
		PlaylistURL:  r.PlaylistURL,
		Phase:        string(r.Phase),
		TotalSources: r.TotalSources,
		Processed:    r.Processed,
		SegmentCount: r.SegmentCount,
		Skipped:      make([]SkippedSourceResponse, 0, len(r.Skipped)),
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		DurationMs:   r.DurationMs,
	}
	for _, s := range r.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedSourceResponse(s))
	}
	if r.StartedAt != nil {
		resp.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if r.FinishedAt != nil {
		resp.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// ToRunListResponse 转换导入记录列表
func ToRunListResponse(runs []*entity.IngestRun) *RunListResponse {
	out := &RunListResponse{Runs: make([]*RunResponse, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, ToRunResponse(r))
	}
	return out
}

// ToSourceListResponse 转换视频列表
func ToSourceListResponse(sources []entity.Source) *SourceListResponse {
	out := &SourceListResponse{Sources: make([]SourceResponse, 0, len(sources))}
	for _, s := range sources {
		out.Sources = append(out.Sources, SourceResponse{
			VideoNumber: s.Index,
			Title:       s.Title,
			Filename:    s.Filename,
			URL:         s.URL,
		})
	}
	return out
}
