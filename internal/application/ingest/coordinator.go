package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/domain/repository"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
)

// Status 对外状态
type Status struct {
	Snapshot
	Ready bool `json:"ready"`
}

// Coordinator 导入任务协调：并发互斥、任务登记、执行与重置
type Coordinator struct {
	pipeline  *Pipeline
	lock      Lock
	progress  *ProgressLog
	status    StatusReader
	runs      repository.IngestRunRepository
	artifacts repository.ArtifactStore
	segments  repository.SegmentRepository
	provider  *retrieval.StoreProvider

	// dispatcher 为 nil 时在本进程后台执行
	dispatcher Dispatcher

	// mu 使“加锁+Begin”与“落库+释放锁+Finish”两段操作在本进程内互斥，
	// 等待方看到终态时锁已释放、记录已更新
	mu sync.Mutex

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// CoordinatorDeps 协调器依赖
type CoordinatorDeps struct {
	Pipeline   *Pipeline
	Lock       Lock
	Progress   *ProgressLog
	Status     StatusReader // 为 nil 时读取 Progress
	Runs       repository.IngestRunRepository
	Artifacts  repository.ArtifactStore
	Segments   repository.SegmentRepository
	Provider   *retrieval.StoreProvider
	Dispatcher Dispatcher
}

// NewCoordinator 创建协调器
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	status := deps.Status
	if status == nil {
		status = deps.Progress
	}
	return &Coordinator{
		pipeline:   deps.Pipeline,
		lock:       deps.Lock,
		progress:   deps.Progress,
		status:     status,
		runs:       deps.Runs,
		artifacts:  deps.Artifacts,
		segments:   deps.Segments,
		provider:   deps.Provider,
		dispatcher: deps.Dispatcher,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Start 登记并启动一次导入；已有导入或重置在进行时返回 CodeIngestInProgress
func (c *Coordinator) Start(ctx context.Context, playlistURL string) (*entity.IngestRun, error) {
	playlistURL = strings.TrimSpace(playlistURL)
	if err := validatePlaylistURL(playlistURL); err != nil {
		return nil, err
	}

	run := entity.NewIngestRun(uuid.NewString(), playlistURL)
	if err := c.begin(ctx, run); err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.RunIDKey, run.ID)
	logger.Info(ctx, "ingest started", "url", playlistURL)

	// 后台任务会继续修改 run，返回副本
	accepted := *run

	if c.dispatcher != nil {
		if err := c.dispatcher.Dispatch(ctx, run); err != nil {
			c.finish(ctx, run, fmt.Errorf("dispatch ingest job: %w", err))
			return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "failed to enqueue ingest job")
		}
		return &accepted, nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(c.baseCtx, run)
	}()
	return &accepted, nil
}

func (c *Coordinator) begin(ctx context.Context, run *entity.IngestRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.lock.TryAcquire(ctx, run.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire ingest lock")
	}
	if !ok {
		return apperrors.ErrIngestInProgress
	}

	run.Start()
	if err := c.runs.Create(ctx, run); err != nil {
		logger.Warn(ctx, "failed to record ingest run", "error", err.Error(), "run_id", run.ID)
	}
	c.progress.Begin(run.ID)
	metrics.IngestRunning.Set(1)
	return nil
}

// Execute 在调用方 goroutine 中执行已登记的导入（队列消费者使用）。
// 锁应由该导入持有；锁已过期时重新获取，被其他任务占用时返回 CodeIngestInProgress 且不执行。
func (c *Coordinator) Execute(ctx context.Context, run *entity.IngestRun) error {
	holder, err := c.lock.Holder(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to read ingest lock")
	}
	if holder != run.ID {
		if holder != "" {
			logger.Warn(ctx, "ingest lock held by another task, job dropped", "run_id", run.ID, "holder", holder)
			return apperrors.ErrIngestInProgress
		}
		ok, err := c.lock.TryAcquire(ctx, run.ID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire ingest lock")
		}
		if !ok {
			return apperrors.ErrIngestInProgress
		}
	}

	if run.StartedAt == nil {
		run.Start()
	}
	c.progress.Begin(run.ID)
	metrics.IngestRunning.Set(1)
	c.execute(ctx, run)
	return nil
}

func (c *Coordinator) execute(ctx context.Context, run *entity.IngestRun) {
	ctx = logger.WithContext(ctx, logger.RunIDKey, run.ID)
	_, err := c.pipeline.Run(ctx, run, c.progress)
	c.finish(ctx, run, err)
}

func (c *Coordinator) finish(ctx context.Context, run *entity.IngestRun, err error) {
	// 使用独立 context，确保取消后仍能落库并释放锁
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var final string
	if err != nil {
		msg := err.Error()
		run.Fail(msg)
		final = "Ingest failed: " + msg
		logger.Error(bg, "ingest failed", err, "processed", run.Processed, "skipped", len(run.Skipped))
	} else {
		segments := 0
		if st, e := c.provider.Current(bg); e == nil {
			segments = st.Len()
		}
		run.Complete(segments)
		final = "Playlist ready"
		logger.Info(bg, "ingest finished", "segments", segments, "skipped", len(run.Skipped), "duration_ms", run.DurationMs)
	}

	metrics.IngestRunsTotal.WithLabelValues(string(run.Phase)).Inc()
	metrics.IngestRunDuration.Observe(float64(run.DurationMs) / 1000)
	metrics.IngestRunning.Set(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.runs.Update(bg, run); e != nil {
		logger.Warn(bg, "failed to update ingest run", "error", e.Error())
	}
	if e := c.lock.Release(bg, run.ID); e != nil {
		logger.Error(bg, "failed to release ingest lock", e)
	}
	c.progress.Finish(run.Phase, final)
}

// Wait 阻塞直到指定导入进入终态
func (c *Coordinator) Wait(ctx context.Context, runID string) (Snapshot, error) {
	ch, cancel, err := c.status.Watch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return Snapshot{}, errors.New("status stream closed")
			}
			if snap.RunID == runID && snap.Phase.Terminal() {
				return snap, nil
			}
		}
	}
}

// Reset 删除全部导入产物与片段表，可重复调用；导入进行中时返回 CodeIngestInProgress
func (c *Coordinator) Reset(ctx context.Context) error {
	owner := "reset-" + uuid.NewString()
	ok, err := c.lock.TryAcquire(ctx, owner)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire ingest lock")
	}
	if !ok {
		return apperrors.ErrIngestInProgress
	}
	defer func() {
		if e := c.lock.Release(context.WithoutCancel(ctx), owner); e != nil {
			logger.Error(ctx, "failed to release ingest lock", e)
		}
	}()

	if err := c.segments.Clear(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to clear segment table")
	}
	if err := c.artifacts.Reset(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to remove ingest artifacts")
	}
	c.provider.Invalidate()
	c.progress.Reset()

	logger.Info(ctx, "data reset")
	return nil
}

// Status 当前状态，ready 表示存在可用片段表
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	snap, err := c.status.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Snapshot: snap, Ready: c.provider.Ready(ctx)}, nil
}

// Watch 状态推送
func (c *Coordinator) Watch(ctx context.Context) (<-chan Snapshot, func(), error) {
	return c.status.Watch(ctx)
}

// Runs 最近的导入记录
func (c *Coordinator) Runs(ctx context.Context, limit int) ([]*entity.IngestRun, error) {
	return c.runs.ListRecent(ctx, limit)
}

// Sources 当前已保存的视频映射
func (c *Coordinator) Sources(ctx context.Context) ([]entity.Source, error) {
	m, err := c.artifacts.LoadSourceMap(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoSnapshot) {
			return []entity.Source{}, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to load source map")
	}
	return m.Sorted(), nil
}

// FollowRemote 队列模式下跟随外部状态：其他进程完成导入或重置后使本地片段表失效
func (c *Coordinator) FollowRemote(ctx context.Context) error {
	ch, cancel, err := c.status.Watch(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var last Snapshot
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			changed := snap.RunID != last.RunID || snap.Phase != last.Phase
			if changed && (snap.Phase == entity.PhaseReady || snap.Phase == entity.PhaseIdle) {
				c.provider.Invalidate()
				logger.Debug(ctx, "segment store invalidated by remote status", "phase", snap.Phase, "run_id", snap.RunID)
			}
			last = snap
		}
	}
}

// Shutdown 取消进行中的本地导入并等待退出
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validatePlaylistURL(raw string) error {
	if raw == "" {
		return apperrors.ErrInvalidParam.WithDetail("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.ErrInvalidParam.WithDetail("url must be an absolute http(s) URL")
	}
	return nil
}
