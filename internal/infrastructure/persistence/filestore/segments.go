package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
)

// segmentRecord 持久化格式
type segmentRecord struct {
	ChunkID        int       `json:"chunk_id"`
	TutorialNumber int       `json:"tutorial_number"`
	TutorialTitle  string    `json:"tutorial_title"`
	Start          float64   `json:"start"`
	End            float64   `json:"end"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"embedding"`
}

// SegmentRepository 片段表 JSON 快照
type SegmentRepository struct {
	path string
}

// NewSegmentRepository 创建片段表仓储
func NewSegmentRepository(dir string) *SegmentRepository {
	return &SegmentRepository{path: filepath.Join(dir, segmentsFile)}
}

// Save 整体替换快照
func (r *SegmentRepository) Save(_ context.Context, segments []entity.Segment) error {
	records := make([]segmentRecord, len(segments))
	for i, s := range segments {
		records[i] = segmentRecord{
			ChunkID:        s.ChunkID,
			TutorialNumber: s.SourceIndex,
			TutorialTitle:  s.SourceTitle,
			Start:          s.StartTime,
			End:            s.EndTime,
			Text:           s.Text,
			Embedding:      s.Embedding,
		}
	}
	return writeJSONAtomic(r.path, records)
}

// Load 读取快照
func (r *SegmentRepository) Load(_ context.Context) ([]entity.Segment, error) {
	var records []segmentRecord
	if err := readJSON(r.path, &records); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrNoSnapshot
		}
		return nil, err
	}

	out := make([]entity.Segment, len(records))
	for i, rec := range records {
		out[i] = entity.Segment{
			ChunkID:     rec.ChunkID,
			SourceIndex: rec.TutorialNumber,
			SourceTitle: rec.TutorialTitle,
			StartTime:   rec.Start,
			EndTime:     rec.End,
			Text:        rec.Text,
			Embedding:   rec.Embedding,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

// Clear 删除快照
func (r *SegmentRepository) Clear(_ context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
