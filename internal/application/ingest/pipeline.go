package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
	"playlist-rag-api/pkg/tracer"
)

const defaultEmbedBatch = 32

// PipelineOptions 导入流程参数
type PipelineOptions struct {
	EmbedBatchSize    int
	EmbedTimeout      time.Duration
	FetchTimeout      time.Duration
	TranscribeTimeout time.Duration
}

// Pipeline 播放列表导入：解析列表、下载音频、转写、向量化、保存快照
type Pipeline struct {
	media       MediaFetcher
	transcriber Transcriber
	embedder    retrieval.Embedder
	artifacts   repository.ArtifactStore
	segments    repository.SegmentRepository
	provider    *retrieval.StoreProvider
	opts        PipelineOptions
}

// NewPipeline 创建导入流程
func NewPipeline(
	media MediaFetcher,
	transcriber Transcriber,
	embedder retrieval.Embedder,
	artifacts repository.ArtifactStore,
	segments repository.SegmentRepository,
	provider *retrieval.StoreProvider,
	opts PipelineOptions,
) *Pipeline {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatch
	}
	return &Pipeline{
		media:       media,
		transcriber: transcriber,
		embedder:    embedder,
		artifacts:   artifacts,
		segments:    segments,
		provider:    provider,
		opts:        opts,
	}
}

// transcribed 已成功转写的视频
type transcribed struct {
	source entity.Source
	chunks []entity.TranscriptChunk
}

// Run 执行一次导入，返回新片段表。
// 单个视频下载或转写失败时记录并跳过；向量化或保存失败时整体失败，原快照保持不变。
func (p *Pipeline) Run(ctx context.Context, run *entity.IngestRun, progress *ProgressLog) (*retrieval.Store, error) {
	ctx, span := tracer.Start(ctx, "ingest.Pipeline.Run")
	defer span.End()

	entries, err := p.media.ListPlaylist(ctx, run.PlaylistURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSourceProcessingFailed, "failed to list playlist")
	}
	total := len(entries)
	run.TotalSources = total
	progress.Step(fmt.Sprintf("Playlist has %d videos", total), fmt.Sprintf("Playlist found: %d videos", total))
	logger.Info(ctx, "playlist listed", "videos", total)

	sources := make(entity.SourceMap, total)
	usable := make([]transcribed, 0, total)

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := i + 1
		title := DisplayTitle(idx, e.Title)
		src := entity.Source{
			Index:    idx,
			Title:    title,
			Filename: BaseName(idx, title),
			URL:      WatchURL(e.ID),
		}

		chunks, err := p.processSource(ctx, src, total, progress)
		run.Processed++
		if err != nil {
			run.Skip(idx, title, err.Error())
			metrics.IngestSourcesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		sources[idx] = src
		usable = append(usable, transcribed{source: src, chunks: chunks})
		metrics.IngestSourcesTotal.WithLabelValues("ok").Inc()
	}

	if len(usable) == 0 {
		return nil, apperrors.ErrNoTranscripts
	}

	batches := make([]retrieval.SourceSegments, 0, len(usable))
	for i, u := range usable {
		progress.Step(
			fmt.Sprintf("Embedding video %d of %d: %s...", i+1, len(usable), shortTitle(u.source.Title)),
			fmt.Sprintf("Embedding video %d: %s", u.source.Index, u.source.Title),
		)
		vecs, err := p.embedChunks(ctx, u.chunks)
		if err != nil {
			return nil, fmt.Errorf("embed video %d: %w", u.source.Index, err)
		}
		batches = append(batches, retrieval.SourceSegments{Source: u.source, Chunks: u.chunks, Embeddings: vecs})
	}

	st, err := retrieval.BuildStore(batches)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to build segment table")
	}
	if err := p.segments.Save(ctx, st.All()); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to save segment table")
	}
	// 片段表落盘即提交，内存表随之切换
	p.provider.Replace(st)
	if err := p.artifacts.SaveSourceMap(ctx, sources); err != nil {
		logger.Warn(ctx, "failed to save source map", "error", err.Error())
		progress.Append("Warning: failed to save source map")
	}

	progress.Append("Embeddings built and saved")
	logger.Info(ctx, "segment table saved", "segments", st.Len(), "sources", len(usable))
	return st, nil
}

// processSource 下载并转写单个视频，返回可用片段
func (p *Pipeline) processSource(ctx context.Context, src entity.Source, total int, progress *ProgressLog) ([]entity.TranscriptChunk, error) {
	ctx = logger.WithContext(ctx, logger.SourceIndexKey, src.Index)

	progress.Step(
		fmt.Sprintf("Fetching video %d of %d: %s...", src.Index, total, shortTitle(src.Title)),
		fmt.Sprintf("Fetching video %d: %s", src.Index, src.Title),
	)

	audio := p.artifacts.AudioPath(src.Filename)
	fetchCtx, cancel := withTimeout(ctx, p.opts.FetchTimeout)
	err := p.media.FetchAudio(fetchCtx, src.URL, audio)
	cancel()
	if err != nil {
		progress.Append(fmt.Sprintf("Failed to download %s: %v", src.Filename, err))
		logger.Error(ctx, "video download failed, skipping", err, "title", src.Title)
		return nil, apperrors.Wrap(err, apperrors.CodeSourceProcessingFailed, "download failed")
	}
	progress.Append(fmt.Sprintf("Saved audio: %s.mp3", src.Filename))

	progress.Message(fmt.Sprintf("Transcribing video %d of %d", src.Index, total))
	trCtx, cancel := withTimeout(ctx, p.opts.TranscribeTimeout)
	raw, err := p.transcriber.Transcribe(trCtx, audio)
	cancel()
	if err != nil {
		progress.Append(fmt.Sprintf("Failed to transcribe %s: %v", src.Filename, err))
		logger.Error(ctx, "transcription failed, skipping", err, "title", src.Title)
		return nil, apperrors.Wrap(err, apperrors.CodeSourceProcessingFailed, "transcription failed")
	}

	chunks := normalizeChunks(src.Index, raw)
	if len(chunks) == 0 {
		progress.Append(fmt.Sprintf("No speech found in %s", src.Filename))
		logger.Warn(ctx, "transcript has no usable segments, skipping", "title", src.Title)
		return nil, apperrors.New(apperrors.CodeSourceProcessingFailed, "empty transcript")
	}

	if err := p.artifacts.SaveTranscript(ctx, src.Filename, &entity.Transcript{SourceIndex: src.Index, Chunks: chunks}); err != nil {
		logger.Error(ctx, "failed to save transcript, skipping", err, "title", src.Title)
		return nil, apperrors.Wrap(err, apperrors.CodeSourceProcessingFailed, "failed to save transcript")
	}
	progress.Append(fmt.Sprintf("Transcribed %s", src.Filename))
	return chunks, nil
}

// embedChunks 按批次向量化，保持顺序
func (p *Pipeline) embedChunks(ctx context.Context, chunks []entity.TranscriptChunk) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.opts.EmbedBatchSize {
		end := start + p.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		embedCtx, cancel := withTimeout(ctx, p.opts.EmbedTimeout)
		vecs, err := p.embedder.Embed(embedCtx, texts)
		cancel()
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, apperrors.New(apperrors.CodeUpstreamError, "embedding service returned unexpected vector count").
				WithDetail(fmt.Sprintf("expected %d, got %d", len(texts), len(vecs)))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// normalizeChunks 时间保留两位小数、去除空白文本与非正时长片段
func normalizeChunks(sourceIndex int, raw []entity.TranscriptChunk) []entity.TranscriptChunk {
	out := make([]entity.TranscriptChunk, 0, len(raw))
	for _, c := range raw {
		c.SourceIndex = sourceIndex
		c.Start = round2(c.Start)
		c.End = round2(c.End)
		c.Text = strings.TrimSpace(c.Text)
		if !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
