package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domain "playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
)

const (
	insertBatch = 1000
	queryPage   = 1000
)

// SegmentRepository 片段表快照存于 Milvus。
// 每次保存写入一个新的代际集合（<alias>_g<时间戳>），完成后切换别名并删除旧代，
// 读取方通过别名始终看到完整的一代。
type SegmentRepository struct {
	client *Client
	alias  string
}

// NewSegmentRepository 创建片段表仓储
func NewSegmentRepository(client *Client) *SegmentRepository {
	return &SegmentRepository{
		client: client,
		alias:  client.CollectionName(CollectionPlaylistSegments),
	}
}

func (r *SegmentRepository) generationPrefix() string {
	return r.alias + "_g"
}

// Save 写入新一代集合并切换别名
func (r *SegmentRepository) Save(ctx context.Context, segments []domain.Segment) error {
	ctx, span := tracer.Start(ctx, "milvus.SegmentRepository.Save",
		trace.WithAttributes(attribute.Int("segments", len(segments))))
	defer span.End()
	defer observe("save", time.Now())

	if len(segments) == 0 {
		return fmt.Errorf("refusing to save empty segment table")
	}

	mc := r.client.milvus
	coll := r.generationPrefix() + strconv.FormatInt(time.Now().UnixNano(), 10)
	dim := len(segments[0].Embedding)

	if err := mc.CreateCollection(ctx, SegmentsSchema(coll, dim), entity.DefaultShardNumber); err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	// 新一代未完成前失败则删除，别名仍指向旧代
	committed := false
	defer func() {
		if !committed {
			if err := mc.DropCollection(context.WithoutCancel(ctx), coll); err != nil {
				logger.Warn(ctx, "failed to drop incomplete milvus generation", "collection", coll, "error", err.Error())
			}
		}
	}()

	for start := 0; start < len(segments); start += insertBatch {
		end := min(start+insertBatch, len(segments))
		if err := r.insert(ctx, coll, dim, segments[start:end]); err != nil {
			tracer.Fail(span, err)
			return err
		}
	}
	if err := mc.Flush(ctx, coll, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, r.client.config.HNSWM, r.client.config.HNSWEfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := mc.CreateIndex(ctx, coll, fieldVector, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := mc.LoadCollection(ctx, coll, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	if err := mc.AlterAlias(ctx, coll, r.alias); err != nil {
		if err := mc.CreateAlias(ctx, coll, r.alias); err != nil {
			tracer.Fail(span, err)
			return fmt.Errorf("failed to point alias %s to %s: %w", r.alias, coll, err)
		}
	}
	committed = true

	r.dropGenerations(ctx, coll)
	return nil
}

func (r *SegmentRepository) insert(ctx context.Context, coll string, dim int, segs []domain.Segment) error {
	n := len(segs)
	ids := make([]int64, n)
	sources := make([]int64, n)
	titles := make([]string, n)
	starts := make([]float64, n)
	ends := make([]float64, n)
	texts := make([]string, n)
	vectors := make([][]float32, n)
	for i, s := range segs {
		ids[i] = int64(s.ChunkID)
		sources[i] = int64(s.SourceIndex)
		titles[i] = s.SourceTitle
		starts[i] = s.StartTime
		ends[i] = s.EndTime
		texts[i] = s.Text
		vectors[i] = s.Embedding
	}

	_, err := r.client.milvus.Insert(ctx, coll, "",
		entity.NewColumnInt64(fieldChunkID, ids),
		entity.NewColumnInt64(fieldSourceIndex, sources),
		entity.NewColumnVarChar(fieldSourceTitle, titles),
		entity.NewColumnDouble(fieldStartTime, starts),
		entity.NewColumnDouble(fieldEndTime, ends),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segments: %w", err)
	}
	return nil
}

// generations 列出所有代际集合，按名称（即时间戳）升序
func (r *SegmentRepository) generations(ctx context.Context) ([]string, error) {
	colls, err := r.client.milvus.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	var out []string
	for _, c := range colls {
		if strings.HasPrefix(c.Name, r.generationPrefix()) {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *SegmentRepository) dropGenerations(ctx context.Context, keep string) {
	gens, err := r.generations(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to list milvus generations", "error", err.Error())
		return
	}
	for _, g := range gens {
		if g == keep {
			continue
		}
		if err := r.client.milvus.DropCollection(ctx, g); err != nil {
			logger.Warn(ctx, "failed to drop old milvus generation", "collection", g, "error", err.Error())
		}
	}
}

// Load 通过别名分页读取全部片段
func (r *SegmentRepository) Load(ctx context.Context) ([]domain.Segment, error) {
	ctx, span := tracer.Start(ctx, "milvus.SegmentRepository.Load")
	defer span.End()
	defer observe("load", time.Now())

	gens, err := r.generations(ctx)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, repository.ErrNoSnapshot
	}

	var out []domain.Segment
	// chunk_id 连续，按区间分页
	for lo := 0; ; lo += queryPage {
		expr := fmt.Sprintf("%s >= %d && %s < %d", fieldChunkID, lo, fieldChunkID, lo+queryPage)
		rs, err := r.client.milvus.Query(ctx, r.alias, nil, expr, outputFields)
		if err != nil {
			tracer.Fail(span, err)
			return nil, fmt.Errorf("failed to query segments: %w", err)
		}
		page, err := decodeSegments(rs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
	}

	if len(out) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func decodeSegments(rs interface {
	GetColumn(string) entity.Column
}) ([]domain.Segment, error) {
	ids, ok1 := rs.GetColumn(fieldChunkID).(*entity.ColumnInt64)
	sources, ok2 := rs.GetColumn(fieldSourceIndex).(*entity.ColumnInt64)
	titles, ok3 := rs.GetColumn(fieldSourceTitle).(*entity.ColumnVarChar)
	starts, ok4 := rs.GetColumn(fieldStartTime).(*entity.ColumnDouble)
	ends, ok5 := rs.GetColumn(fieldEndTime).(*entity.ColumnDouble)
	texts, ok6 := rs.GetColumn(fieldText).(*entity.ColumnVarChar)
	vectors, ok7 := rs.GetColumn(fieldVector).(*entity.ColumnFloatVector)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		if ids == nil || ids.Len() == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected milvus result columns")
	}

	n := ids.Len()
	out := make([]domain.Segment, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Segment{
			ChunkID:     int(ids.Data()[i]),
			SourceIndex: int(sources.Data()[i]),
			SourceTitle: titles.Data()[i],
			StartTime:   starts.Data()[i],
			EndTime:     ends.Data()[i],
			Text:        texts.Data()[i],
			Embedding:   vectors.Data()[i],
		}
	}
	return out, nil
}

// Clear 删除别名与全部代际集合
func (r *SegmentRepository) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.SegmentRepository.Clear")
	defer span.End()
	defer observe("clear", time.Now())

	gens, err := r.generations(ctx)
	if err != nil {
		return err
	}
	if len(gens) == 0 {
		return nil
	}
	if err := r.client.milvus.DropAlias(ctx, r.alias); err != nil {
		logger.Debug(ctx, "drop alias failed", "alias", r.alias, "error", err.Error())
	}
	for _, g := range gens {
		if err := r.client.milvus.DropCollection(ctx, g); err != nil {
			tracer.Fail(span, err)
			return fmt.Errorf("failed to drop collection %s: %w", g, err)
		}
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.MilvusOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

var _ repository.SegmentRepository = (*SegmentRepository)(nil)
