// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"playlist-rag-api/internal/domain/entity"
)

// ErrNoSnapshot 尚未保存任何片段表
var ErrNoSnapshot = errors.New("no segment snapshot")

// SegmentRepository 片段表快照仓储
// 一次导入产出一个完整快照，保存时整体替换，读取方不会看到半成品。
type SegmentRepository interface {
	// Save 原子替换当前快照
	Save(ctx context.Context, segments []entity.Segment) error

	// Load 读取当前快照，按 ChunkID 升序；不存在时返回 ErrNoSnapshot
	Load(ctx context.Context) ([]entity.Segment, error)

	// Clear 删除快照，重复调用无副作用
	Clear(ctx context.Context) error
}

// ArtifactStore 导入中间产物（音频、转写、视频映射）存储
type ArtifactStore interface {
	// AudioPath 返回某个视频音频文件的目标路径
	AudioPath(base string) string

	SaveTranscript(ctx context.Context, base string, t *entity.Transcript) error
	LoadTranscript(ctx context.Context, base string) (*entity.Transcript, error)

	SaveSourceMap(ctx context.Context, m entity.SourceMap) error
	// LoadSourceMap 不存在时返回 ErrNoSnapshot
	LoadSourceMap(ctx context.Context) (entity.SourceMap, error)

	// Reset 删除全部产物，重复调用无副作用
	Reset(ctx context.Context) error
}

// IngestRunRepository 导入记录仓储
type IngestRunRepository interface {
	Create(ctx context.Context, run *entity.IngestRun) error
	Update(ctx context.Context, run *entity.IngestRun) error
	ListRecent(ctx context.Context, limit int) ([]*entity.IngestRun, error)
}
