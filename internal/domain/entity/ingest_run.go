package entity

import (
	"time"
)

// Phase 导入流程阶段
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// Terminal 是否为终态
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseError
}

// SkippedSource 导入中被跳过的视频
type SkippedSource struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// IngestRun 一次播放列表导入的记录
type IngestRun struct {
	ID           string          `json:"id"`
	PlaylistURL  string          `json:"playlist_url"`
	Phase        Phase           `json:"phase"`
	TotalSources int             `json:"total_sources"`
	Processed    int             `json:"processed_sources"`
	SegmentCount int             `json:"segment_count"`
	Skipped      []SkippedSource `json:"skipped,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	DurationMs   int64           `json:"duration_ms,omitempty"`
}

// NewIngestRun 创建新的导入记录
func NewIngestRun(id, playlistURL string) *IngestRun {
	return &IngestRun{
		ID:          id,
		PlaylistURL: playlistURL,
		Phase:       PhaseIdle,
		CreatedAt:   time.Now(),
	}
}

// Start 开始执行
func (r *IngestRun) Start() {
	now := time.Now()
	r.Phase = PhaseRunning
	r.StartedAt = &now
}

// Skip 记录被跳过的视频
func (r *IngestRun) Skip(index int, title, reason string) {
	r.Skipped = append(r.Skipped, SkippedSource{Index: index, Title: title, Reason: reason})
}

// Complete 导入成功
func (r *IngestRun) Complete(segmentCount int) {
	r.SegmentCount = segmentCount
	r.finish(PhaseReady)
}

// Fail 导入失败
func (r *IngestRun) Fail(errMsg string) {
	r.ErrorMessage = errMsg
	r.finish(PhaseError)
}

func (r *IngestRun) finish(phase Phase) {
	now := time.Now()
	r.Phase = phase
	r.FinishedAt = &now
	if r.StartedAt != nil {
		r.DurationMs = now.Sub(*r.StartedAt).Milliseconds()
	}
}
