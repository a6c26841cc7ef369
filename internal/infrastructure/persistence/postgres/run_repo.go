package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"playlist-rag-api/internal/domain/entity"
)

// ingestRunModel ingest_runs 表
type ingestRunModel struct {
	ID           string         `gorm:"primaryKey;type:uuid"`
	PlaylistURL  string         `gorm:"not null"`
	Phase        string         `gorm:"type:varchar(16);not null;index"`
	TotalSources int            `gorm:"not null;default:0"`
	Processed    int            `gorm:"not null;default:0"`
	SegmentCount int            `gorm:"not null;default:0"`
	Skipped      pq.StringArray `gorm:"type:text[]"`
	ErrorMessage string
	CreatedAt    time.Time `gorm:"index"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
	DurationMs   int64
}

func (ingestRunModel) TableName() string { return "ingest_runs" }

// 跳过记录编码为 "序号\t标题\t原因"
func encodeSkipped(in []entity.SkippedSource) pq.StringArray {
	out := make(pq.StringArray, 0, len(in))
	for _, s := range in {
		title := strings.ReplaceAll(s.Title, "\t", " ")
		out = append(out, strconv.Itoa(s.Index)+"\t"+title+"\t"+s.Reason)
	}
	return out
}

func decodeSkipped(in pq.StringArray) []entity.SkippedSource {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.SkippedSource, 0, len(in))
	for _, raw := range in {
		parts := strings.SplitN(raw, "\t", 3)
		idx, _ := strconv.Atoi(parts[0])
		s := entity.SkippedSource{Index: idx}
		if len(parts) > 1 {
			s.Title = parts[1]
		}
		if len(parts) > 2 {
			s.Reason = parts[2]
		}
		out = append(out, s)
	}
	return out
}

func toModel(r *entity.IngestRun) *ingestRunModel {
	return &ingestRunModel{
		ID:           r.ID,
		PlaylistURL:  r.PlaylistURL,
		Phase:        string(r.Phase),
		TotalSources: r.TotalSources,
		Processed:    r.Processed,
		SegmentCount: r.SegmentCount,
		Skipped:      encodeSkipped(r.Skipped),
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		DurationMs:   r.DurationMs,
	}
}

func (m *ingestRunModel) toEntity() *entity.IngestRun {
	return &entity.IngestRun{
		ID:           m.ID,
		PlaylistURL:  m.PlaylistURL,
		Phase:        entity.Phase(m.Phase),
		TotalSources: m.TotalSources,
		Processed:    m.Processed,
		SegmentCount: m.SegmentCount,
		Skipped:      decodeSkipped(m.Skipped),
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		DurationMs:   m.DurationMs,
	}
}

// IngestRunRepository 导入记录仓储实现
type IngestRunRepository struct {
	client *Client
}

// NewIngestRunRepository 创建导入记录仓储
func NewIngestRunRepository(client *Client) *IngestRunRepository {
	return &IngestRunRepository{client: client}
}

// Create 创建记录
func (r *IngestRunRepository) Create(ctx context.Context, run *entity.IngestRun) error {
	ctx, span := tracer.Start(ctx, "postgres.IngestRunRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(toModel(run)).Error; err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to create ingest run: %w", err)
	}
	return nil
}

// Update 更新记录（不存在时插入）
func (r *IngestRunRepository) Update(ctx context.Context, run *entity.IngestRun) error {
	ctx, span := tracer.Start(ctx, "postgres.IngestRunRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(toModel(run)).Error; err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to update ingest run: %w", err)
	}
	return nil
}

// ListRecent 最近的记录，按创建时间倒序
func (r *IngestRunRepository) ListRecent(ctx context.Context, limit int) ([]*entity.IngestRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.IngestRunRepository.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	var models []ingestRunModel
	if err := r.client.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		tracer.Fail(span, err)
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}

	out := make([]*entity.IngestRun, 0, len(models))
	for i := range models {
		out = append(out, models[i].toEntity())
	}
	return out, nil
}
