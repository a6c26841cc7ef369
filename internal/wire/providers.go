// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/domain/repository"
	"playlist-rag-api/internal/infrastructure/embedding"
	"playlist-rag-api/internal/infrastructure/llm"
	"playlist-rag-api/internal/infrastructure/media"
	"playlist-rag-api/internal/infrastructure/messaging"
	"playlist-rag-api/internal/infrastructure/persistence/filestore"
	"playlist-rag-api/internal/infrastructure/persistence/milvus"
	"playlist-rag-api/internal/infrastructure/persistence/postgres"
	"playlist-rag-api/internal/infrastructure/persistence/redis"
	"playlist-rag-api/internal/infrastructure/transcribe"
	"playlist-rag-api/internal/interfaces/http/handler"
	"playlist-rag-api/internal/interfaces/http/middleware"
	"playlist-rag-api/internal/interfaces/http/router"
	"playlist-rag-api/pkg/logger"
)

// App API 进程
type App struct {
	Router      *router.Router
	Coordinator *ingest.Coordinator
	Answerer    *retrieval.Answerer
}

// Worker 导入 worker 进程
type Worker struct {
	Coordinator *ingest.Coordinator
	Consumer    *messaging.Consumer
	Health      *handler.HealthHandler
}

// Toolkit 命令行工具：进程内导入与问答
type Toolkit struct {
	Coordinator *ingest.Coordinator
	Answerer    *retrieval.Answerer
}

func noop() {}

// ProvideRedisClient 启用时提供 Redis 客户端，否则为 nil
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, noop, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClient 启用时提供 PostgreSQL 客户端（导入历史），否则为 nil
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Database.Postgres.Enabled {
		return nil, noop, nil
	}
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 片段表存于 Milvus 时提供客户端，否则为 nil
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if cfg.Storage.Segments.Backend != "milvus" {
		return nil, noop, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSegmentRepository 按 storage.segments.backend 选择片段表快照存储
func ProvideSegmentRepository(ctx context.Context, cfg *config.Config, mc *milvus.Client) (repository.SegmentRepository, func(), error) {
	switch cfg.Storage.Segments.Backend {
	case "", "file":
		return filestore.NewSegmentRepository(cfg.Data.Dir), noop, nil
	case "postgres":
		repo, err := postgres.NewSegmentRepository(ctx, &cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "milvus":
		if mc == nil {
			return nil, nil, fmt.Errorf("milvus client not configured")
		}
		return milvus.NewSegmentRepository(mc), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown segment backend: %s", cfg.Storage.Segments.Backend)
	}
}

// ProvideArtifactStore 音频、转写与视频映射存于本地数据目录
func ProvideArtifactStore(cfg *config.Config) repository.ArtifactStore {
	return filestore.NewArtifactStore(cfg.Data.Dir)
}

// ProvideIngestRunRepository 配置 PostgreSQL 时持久化导入历史，否则保存在进程内
func ProvideIngestRunRepository(cfg *config.Config, pg *postgres.Client) repository.IngestRunRepository {
	if pg == nil {
		return ingest.NewMemoryRunRepository(cfg.Ingest.HistorySize)
	}
	return postgres.NewIngestRunRepository(pg)
}

// ProvideIngestLock 配置 Redis 时使用分布式锁
func ProvideIngestLock(cfg *config.Config, rc *redis.Client) ingest.Lock {
	if rc == nil {
		return ingest.NewLocalLock()
	}
	return redis.NewIngestLock(rc, cfg.Ingest.LockTTL)
}

// ProvideStatusStore 配置 Redis 时提供状态镜像，否则为 nil
func ProvideStatusStore(rc *redis.Client) *redis.StatusStore {
	if rc == nil {
		return nil
	}
	return redis.NewStatusStore(rc)
}

// ProvideProgressLog 进度日志，配置 Redis 时同步到状态镜像
func ProvideProgressLog(cfg *config.Config, status *redis.StatusStore) *ingest.ProgressLog {
	if status == nil {
		return ingest.NewProgressLog(cfg.Ingest.LogCapacity, nil)
	}
	return ingest.NewProgressLog(cfg.Ingest.LogCapacity, status)
}

// ProvideAPIStatusReader 队列模式下状态以 Redis 镜像为准（由 worker 写入）
func ProvideAPIStatusReader(cfg *config.Config, status *redis.StatusStore, progress *ingest.ProgressLog) ingest.StatusReader {
	if cfg.Ingest.QueueMode() && status != nil {
		return status
	}
	return progress
}

// ProvideLocalStatusReader worker 与命令行直接读取本进程进度
func ProvideLocalStatusReader(progress *ingest.ProgressLog) ingest.StatusReader {
	return progress
}

// IngestEmbedder 导入流程专用的向量化客户端，不经过问题向量缓存
type IngestEmbedder retrieval.Embedder

// ProvideQueryEmbedder 问答使用的向量化客户端；配置 Redis 时缓存问题向量
func ProvideQueryEmbedder(ctx context.Context, cfg *config.Config, rc *redis.Client) (retrieval.Embedder, error) {
	client, err := embedding.New(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if rc == nil || cfg.Embedding.QueryCacheTTL <= 0 {
		return client, nil
	}
	return embedding.NewCachedClient(client, redis.NewCache(rc), cfg.Embedding.QueryCacheTTL, cfg.Cache.Redis.KeyPrefix), nil
}

// ProvideIngestEmbedder 导入流程的向量化客户端，转写文本不写入问题缓存
func ProvideIngestEmbedder(ctx context.Context, cfg *config.Config) (IngestEmbedder, error) {
	client, err := embedding.New(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ProvideGenerator 生成模型客户端
func ProvideGenerator(ctx context.Context, cfg *config.Config) (retrieval.Generator, error) {
	return llm.New(ctx, &cfg.LLM)
}

// ProvideRanker 相似度排序
func ProvideRanker(cfg *config.Config) *retrieval.Ranker {
	return retrieval.NewRanker(cfg.Retrieval.SimilarityThreshold, cfg.Retrieval.TopK)
}

// ProvideAnswerer 问答服务
func ProvideAnswerer(cfg *config.Config, provider *retrieval.StoreProvider, embedder retrieval.Embedder, generator retrieval.Generator, ranker *retrieval.Ranker) *retrieval.Answerer {
	return retrieval.NewAnswerer(provider, embedder, generator, ranker, retrieval.Options{
		EmbedTimeout:    cfg.Embedding.Timeout,
		GenerateTimeout: cfg.LLM.Timeout,
	})
}

// ProvideMediaFetcher yt-dlp 下载器
func ProvideMediaFetcher(cfg *config.Config) ingest.MediaFetcher {
	return media.NewYtDlp(&cfg.Media)
}

// ProvideTranscriber 进程启动时加载转写模型，cleanup 时释放
func ProvideTranscriber(ctx context.Context, cfg *config.Config) (ingest.Transcriber, func(), error) {
	t, err := transcribe.Load(ctx, &cfg.Transcription)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := t.Close(); err != nil {
			logger.Warn(ctx, "failed to close transcriber", "error", err.Error())
		}
	}
	return t, cleanup, nil
}

// ProvideLazyTranscriber 命令行进程只在真正导入时加载模型
func ProvideLazyTranscriber(ctx context.Context, cfg *config.Config) (ingest.Transcriber, func()) {
	t := transcribe.NewLazy(&cfg.Transcription)
	cleanup := func() {
		if err := t.Close(); err != nil {
			logger.Warn(ctx, "failed to close transcriber", "error", err.Error())
		}
	}
	return t, cleanup
}

// ProvideAPITranscriber 队列模式下 API 进程不执行导入，不加载转写模型
func ProvideAPITranscriber(ctx context.Context, cfg *config.Config) (ingest.Transcriber, func(), error) {
	if cfg.Ingest.QueueMode() {
		return nil, noop, nil
	}
	return ProvideTranscriber(ctx, cfg)
}

// ProvidePipeline 导入流程
func ProvidePipeline(
	cfg *config.Config,
	fetcher ingest.MediaFetcher,
	transcriber ingest.Transcriber,
	embedder IngestEmbedder,
	artifacts repository.ArtifactStore,
	segments repository.SegmentRepository,
	provider *retrieval.StoreProvider,
) *ingest.Pipeline {
	return ingest.NewPipeline(fetcher, transcriber, embedder, artifacts, segments, provider, ingest.PipelineOptions{
		EmbedBatchSize:    cfg.Embedding.BatchSize,
		EmbedTimeout:      cfg.Embedding.Timeout,
		FetchTimeout:      cfg.Media.FetchTimeout,
		TranscribeTimeout: cfg.Transcription.Timeout,
	})
}

// IngestStream 带键前缀的导入任务流
func IngestStream(cfg *config.Config) messaging.Stream {
	return messaging.StreamIngest.WithPrefix(cfg.Cache.Redis.KeyPrefix)
}

// ProvideDispatcher 队列模式下将导入投递到 Redis Stream，否则为 nil（进程内执行）
func ProvideDispatcher(cfg *config.Config, rc *redis.Client) ingest.Dispatcher {
	if !cfg.Ingest.QueueMode() || rc == nil {
		return nil
	}
	return messaging.NewProducer(rc.Redis(), IngestStream(cfg), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideLocalDispatcher 在本进程后台执行导入
func ProvideLocalDispatcher() ingest.Dispatcher {
	return nil
}

// CoordinatorParams 协调器依赖
type CoordinatorParams struct {
	Pipeline   *ingest.Pipeline
	Lock       ingest.Lock
	Progress   *ingest.ProgressLog
	Status     ingest.StatusReader
	Runs       repository.IngestRunRepository
	Artifacts  repository.ArtifactStore
	Segments   repository.SegmentRepository
	Provider   *retrieval.StoreProvider
	Dispatcher ingest.Dispatcher
}

// ProvideCoordinator 导入协调器，cleanup 时取消进行中的本地导入
func ProvideCoordinator(ctx context.Context, p CoordinatorParams) (*ingest.Coordinator, func()) {
	c := ingest.NewCoordinator(ingest.CoordinatorDeps{
		Pipeline:   p.Pipeline,
		Lock:       p.Lock,
		Progress:   p.Progress,
		Status:     p.Status,
		Runs:       p.Runs,
		Artifacts:  p.Artifacts,
		Segments:   p.Segments,
		Provider:   p.Provider,
		Dispatcher: p.Dispatcher,
	})
	cleanup := func() {
		if err := c.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "coordinator shutdown interrupted", "error", err.Error())
		}
	}
	return c, cleanup
}

// ProvideConsumer 导入任务消费者，消费者名取主机名与进程号
func ProvideConsumer(cfg *config.Config, rc *redis.Client, coord *ingest.Coordinator) (*messaging.Consumer, error) {
	if rc == nil {
		return nil, fmt.Errorf("ingest worker requires cache.redis.enabled")
	}
	host, _ := os.Hostname()
	sc := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(rc.Redis(), messaging.ConsumerConfig{
		Stream:        IngestStream(cfg),
		Group:         messaging.ConsumerGroupIngestWorker,
		ConsumerName:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		BlockTimeout:  sc.BlockTimeout,
		ClaimInterval: sc.ClaimInterval,
		ReclaimIdle:   sc.ReclaimIdle,
		RetryLimit:    sc.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    sc.RetryBackoff.Initial,
			Max:        sc.RetryBackoff.Max,
			Multiplier: sc.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeIngest, messaging.NewIngestJobHandler(coord))
	return consumer, nil
}

// ProvideHealthHandler 就绪检查覆盖已配置的外部依赖
func ProvideHealthHandler(cfg *config.Config, rc *redis.Client, pg *postgres.Client, mc *milvus.Client, segments repository.SegmentRepository, provider *retrieval.StoreProvider) *handler.HealthHandler {
	var checks []handler.DependencyCheck
	if rc != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Required: true, Check: rc.HealthCheck})
	}
	if pg != nil {
		checks = append(checks, handler.DependencyCheck{Name: "postgres", Required: true, Check: pg.HealthCheck})
	}
	if pgSeg, ok := segments.(*postgres.SegmentRepository); ok {
		checks = append(checks, handler.DependencyCheck{Name: "pgvector", Required: true, Check: pgSeg.HealthCheck})
	}
	if mc != nil {
		checks = append(checks, handler.DependencyCheck{Name: "milvus", Required: true, Check: mc.HealthCheck})
	}
	return handler.NewHealthHandler(cfg.App.Version, provider.Ready, checks...)
}

// ProvideRateLimiter 配置 Redis 时提供限流器，否则为 nil
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// ProvideRouter HTTP 路由
func ProvideRouter(cfg *config.Config, health *handler.HealthHandler, answerer *retrieval.Answerer, coord *ingest.Coordinator, limiter middleware.RateLimiter) *router.Router {
	return router.New(cfg, &router.Handlers{
		Health: health,
		QA:     handler.NewQAHandler(answerer),
		Ingest: handler.NewIngestHandler(coord),
	}, limiter)
}
