package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
)

// ArtifactStore 音频、转写与视频映射
type ArtifactStore struct {
	dir string
}

// NewArtifactStore 创建产物存储
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// AudioPath 音频文件路径
func (s *ArtifactStore) AudioPath(base string) string {
	return filepath.Join(s.dir, audiosDir, base+".mp3")
}

func (s *ArtifactStore) transcriptPath(base string) string {
	return filepath.Join(s.dir, transcriptDir, base+".json")
}

// SaveTranscript 保存单个视频的转写
func (s *ArtifactStore) SaveTranscript(_ context.Context, base string, t *entity.Transcript) error {
	return writeJSONAtomic(s.transcriptPath(base), t)
}

// LoadTranscript 读取单个视频的转写
func (s *ArtifactStore) LoadTranscript(_ context.Context, base string) (*entity.Transcript, error) {
	var t entity.Transcript
	if err := readJSON(s.transcriptPath(base), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveSourceMap 保存视频映射，键为十进制序号
func (s *ArtifactStore) SaveSourceMap(_ context.Context, m entity.SourceMap) error {
	return writeJSONAtomic(filepath.Join(s.dir, sourceMapFile), m.ToJSONKeys())
}

// LoadSourceMap 读取视频映射
func (s *ArtifactStore) LoadSourceMap(_ context.Context) (entity.SourceMap, error) {
	var raw map[string]entity.Source
	if err := readJSON(filepath.Join(s.dir, sourceMapFile), &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrNoSnapshot
		}
		return nil, err
	}
	return entity.SourceMapFromJSONKeys(raw)
}

// Reset 删除音频、转写目录与视频映射
func (s *ArtifactStore) Reset(_ context.Context) error {
	for _, p := range []string{
		filepath.Join(s.dir, audiosDir),
		filepath.Join(s.dir, transcriptDir),
		filepath.Join(s.dir, sourceMapFile),
	} {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
