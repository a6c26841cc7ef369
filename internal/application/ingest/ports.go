package ingest

import (
	"context"

	"playlist-rag-api/internal/domain/entity"
)

// PlaylistEntry 播放列表中的视频条目，顺序即播放顺序
type PlaylistEntry struct {
	ID    string
	Title string
}

// MediaFetcher 播放列表解析与音频下载（port）
type MediaFetcher interface {
	ListPlaylist(ctx context.Context, playlistURL string) ([]PlaylistEntry, error)
	FetchAudio(ctx context.Context, videoURL, outPath string) error
}

// Transcriber 语音转写并翻译为英文（port）
// 实现方在进程启动时加载模型，由 Close 释放。
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]entity.TranscriptChunk, error)
	Close() error
}

// Dispatcher 将已登记的导入任务交给执行方（例如 Redis Stream 队列）
type Dispatcher interface {
	Dispatch(ctx context.Context, run *entity.IngestRun) error
}

// StatusReader 读取导入状态
// 进程内模式由 ProgressLog 提供；队列模式由 Redis 状态镜像提供。
type StatusReader interface {
	Status(ctx context.Context) (Snapshot, error)
	// Watch 返回状态推送通道，首个元素为当前状态；调用 cancel 结束订阅
	Watch(ctx context.Context) (<-chan Snapshot, func(), error)
}

// StatusMirror 将本地状态同步到外部（Redis SET + PUBLISH）
type StatusMirror interface {
	Publish(ctx context.Context, snap Snapshot) error
}
