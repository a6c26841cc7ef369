//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/config"
)

// InfraSet 外部依赖客户端与存储
var InfraSet = wire.NewSet(
	ProvideRedisClient,
	ProvidePostgresClient,
	ProvideMilvusClient,
	ProvideSegmentRepository,
	ProvideArtifactStore,
	ProvideIngestRunRepository,
	ProvideIngestLock,
	ProvideStatusStore,
	ProvideProgressLog,
)

// RetrievalSet 检索问答
var RetrievalSet = wire.NewSet(
	retrieval.NewStoreProvider,
	ProvideQueryEmbedder,
	ProvideGenerator,
	ProvideRanker,
	ProvideAnswerer,
)

// IngestSet 导入流程（不含转写与状态来源）
var IngestSet = wire.NewSet(
	ProvideMediaFetcher,
	ProvideIngestEmbedder,
	ProvidePipeline,
	wire.Struct(new(CoordinatorParams), "*"),
	ProvideCoordinator,
)

// InitializeApp API 进程
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		InfraSet,
		RetrievalSet,
		IngestSet,
		ProvideAPITranscriber,
		ProvideAPIStatusReader,
		ProvideDispatcher,
		ProvideHealthHandler,
		ProvideRateLimiter,
		ProvideRouter,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 导入 worker 进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		InfraSet,
		RetrievalSet,
		IngestSet,
		ProvideTranscriber,
		ProvideLocalStatusReader,
		ProvideLocalDispatcher,
		ProvideConsumer,
		ProvideHealthHandler,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeToolkit 命令行工具
func InitializeToolkit(ctx context.Context, cfg *config.Config) (*Toolkit, func(), error) {
	wire.Build(
		InfraSet,
		RetrievalSet,
		IngestSet,
		ProvideLazyTranscriber,
		ProvideLocalStatusReader,
		ProvideLocalDispatcher,
		wire.Struct(new(Toolkit), "*"),
	)
	return nil, nil, nil
}
