package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
)

const segmentsDDL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS playlist_segments (
	chunk_id     INTEGER PRIMARY KEY,
	source_index INTEGER NOT NULL,
	source_title TEXT NOT NULL,
	start_time   DOUBLE PRECISION NOT NULL,
	end_time     DOUBLE PRECISION NOT NULL,
	text         TEXT NOT NULL,
	embedding    vector NOT NULL
);`

// SegmentRepository 片段表存于 pgvector 列，保存时在事务内整体替换
type SegmentRepository struct {
	pool *pgxpool.Pool
}

// NewSegmentRepository 创建连接池并建表
func NewSegmentRepository(ctx context.Context, cfg *config.PostgresConfig) (*SegmentRepository, error) {
	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, segmentsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure playlist_segments: %w", err)
	}
	return &SegmentRepository{pool: pool}, nil
}

// Save 在单个事务内清空并写入，失败回滚后旧快照保持不变
func (r *SegmentRepository) Save(ctx context.Context, segments []entity.Segment) error {
	ctx, span := tracer.Start(ctx, "postgres.SegmentRepository.Save")
	defer span.End()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM playlist_segments"); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, s := range segments {
			batch.Queue(`INSERT INTO playlist_segments
				(chunk_id, source_index, source_title, start_time, end_time, text, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				s.ChunkID, s.SourceIndex, s.SourceTitle, s.StartTime, s.EndTime, s.Text,
				pgvector.NewVector(s.Embedding))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to save segments: %w", err)
	}
	return nil
}

// Load 读取全部片段，按 chunk_id 升序
func (r *SegmentRepository) Load(ctx context.Context) ([]entity.Segment, error) {
	ctx, span := tracer.Start(ctx, "postgres.SegmentRepository.Load")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT chunk_id, source_index, source_title, start_time, end_time, text, embedding::text
		FROM playlist_segments ORDER BY chunk_id`)
	if err != nil {
		tracer.Fail(span, err)
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var out []entity.Segment
	for rows.Next() {
		var s entity.Segment
		var vec pgvector.Vector
		if err := rows.Scan(&s.ChunkID, &s.SourceIndex, &s.SourceTitle, &s.StartTime, &s.EndTime, &s.Text, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		s.Embedding = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}
	if len(out) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	return out, nil
}

// Clear 清空片段表
func (r *SegmentRepository) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.SegmentRepository.Clear")
	defer span.End()

	if _, err := r.pool.Exec(ctx, "DELETE FROM playlist_segments"); err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (r *SegmentRepository) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close 关闭连接池
func (r *SegmentRepository) Close() {
	r.pool.Close()
}

var _ repository.SegmentRepository = (*SegmentRepository)(nil)
