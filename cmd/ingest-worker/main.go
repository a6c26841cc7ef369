// Package main 导入 worker 入口：消费 Redis Stream 中的导入任务
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"playlist-rag-api/internal/config"
	einoobs "playlist-rag-api/internal/observability/eino"
	"playlist-rag-api/internal/wire"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var Version = "dev"

const dlqThreshold = 10

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Ingest.QueueMode() {
		logger.Warn(ctx, "ingest.mode is not queue, api-gateway will not dispatch jobs to this worker")
	}

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name + "-worker",
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	logger.Info(ctx, "starting ingest-worker", "version", Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Consumer.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				worker.Consumer.MonitorDLQ(gctx, dlqThreshold)
			}
		}
	})

	if port := cfg.Messaging.RedisStream.WorkerMetricsPort; port > 0 {
		srv := newOpsServer(cfg, worker, port)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "ingest-worker stopped with error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := worker.Coordinator.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "ingest did not stop in time", "error", err.Error())
	}
	logger.Info(ctx, "ingest-worker exited")
}

// newOpsServer 暴露 /metrics 与健康检查
func newOpsServer(cfg *config.Config, worker *wire.Worker, port int) *http.Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", worker.Health.Health)
	engine.GET("/live", worker.Health.Live)
	engine.GET("/ready", worker.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
