package wire

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/infrastructure/embedding"
	"playlist-rag-api/internal/infrastructure/persistence/redis"
)

func TestEmbeddersSplitQueryCacheFromIngest(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.QueryCacheTTL = time.Hour
	cfg.Cache.Redis.Enabled = true
	rc := redis.NewClientFromRedis(rdb, &cfg.Cache.Redis)
	ctx := context.Background()

	query, err := ProvideQueryEmbedder(ctx, cfg, rc)
	if err != nil {
		t.Fatalf("ProvideQueryEmbedder: %v", err)
	}
	if _, ok := query.(*embedding.CachedClient); !ok {
		t.Fatalf("query embedder = %T, want *embedding.CachedClient", query)
	}

	// 导入流程即使配置了 Redis 也不经过问题向量缓存
	ing, err := ProvideIngestEmbedder(ctx, cfg)
	if err != nil {
		t.Fatalf("ProvideIngestEmbedder: %v", err)
	}
	if _, ok := ing.(*embedding.CachedClient); ok {
		t.Fatal("ingest embedder must not use the query cache")
	}
	if _, ok := ing.(*embedding.OllamaClient); !ok {
		t.Fatalf("ingest embedder = %T, want *embedding.OllamaClient", ing)
	}
}

func TestQueryEmbedderWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	cfg.Embedding.QueryCacheTTL = time.Hour

	query, err := ProvideQueryEmbedder(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("ProvideQueryEmbedder: %v", err)
	}
	if _, ok := query.(*embedding.CachedClient); ok {
		t.Fatal("cache requires redis")
	}
}
