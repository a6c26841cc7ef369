package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
	apperrors "playlist-rag-api/pkg/errors"
)

type fakeMedia struct {
	entries  []PlaylistEntry
	listErr  error
	failURLs map[string]bool
	// gate 非 nil 时 FetchAudio 阻塞直到关闭
	gate chan struct{}
}

func (m *fakeMedia) ListPlaylist(_ context.Context, _ string) ([]PlaylistEntry, error) {
	return m.entries, m.listErr
}

func (m *fakeMedia) FetchAudio(ctx context.Context, videoURL, _ string) error {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.failURLs[videoURL] {
		return errors.New("HTTP Error 403: Forbidden")
	}
	return nil
}

// fakeTranscriber 每个音频产出两个片段，文本带上文件名便于定位
type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, audioPath string) ([]entity.TranscriptChunk, error) {
	return []entity.TranscriptChunk{
		{Start: 0, End: 4.256, Text: "  intro of " + audioPath + " "},
		{Start: 4.256, End: 9.9, Text: "details of " + audioPath},
		{Start: 9.9, End: 9.9, Text: "zero length"},
		{Start: 10, End: 11, Text: "   "},
	}, nil
}

func (fakeTranscriber) Close() error { return nil }

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  bool
	calls int
	sizes []int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.sizes = append(e.sizes, len(texts))
	if e.fail {
		return nil, apperrors.New(apperrors.CodeUpstreamUnavailable, "embedding service unreachable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type memArtifacts struct {
	mu          sync.Mutex
	transcripts map[string]*entity.Transcript
	sources     entity.SourceMap
	resets      int
	// mapErr 非 nil 时 SaveSourceMap 直接返回该错误
	mapErr error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{transcripts: map[string]*entity.Transcript{}}
}

func (a *memArtifacts) AudioPath(base string) string { return "audios/" + base + ".mp3" }

func (a *memArtifacts) SaveTranscript(_ context.Context, base string, t *entity.Transcript) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcripts[base] = t
	return nil
}

func (a *memArtifacts) LoadTranscript(_ context.Context, base string) (*entity.Transcript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.transcripts[base]
	if !ok {
		return nil, fmt.Errorf("transcript %s: %w", base, repository.ErrNoSnapshot)
	}
	return t, nil
}

func (a *memArtifacts) SaveSourceMap(_ context.Context, m entity.SourceMap) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mapErr != nil {
		return a.mapErr
	}
	a.sources = m
	return nil
}

func (a *memArtifacts) LoadSourceMap(_ context.Context) (entity.SourceMap, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sources == nil {
		return nil, repository.ErrNoSnapshot
	}
	return a.sources, nil
}

func (a *memArtifacts) Reset(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcripts = map[string]*entity.Transcript{}
	a.sources = nil
	a.resets++
	return nil
}

type memSegments struct {
	mu       sync.Mutex
	segments []entity.Segment
}

func (s *memSegments) Save(_ context.Context, segments []entity.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append([]entity.Segment(nil), segments...)
	return nil
}

func (s *memSegments) Load(_ context.Context) ([]entity.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.segments) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	return append([]entity.Segment(nil), s.segments...), nil
}

func (s *memSegments) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = nil
	return nil
}

func threeVideos() []PlaylistEntry {
	return []PlaylistEntry{
		{ID: "aaa", Title: "Intro to Go!"},
		{ID: "bbb", Title: "Broken Video"},
		{ID: "ccc", Title: ""},
	}
}

func containsLine(log []string, sub string) bool {
	for _, l := range log {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
