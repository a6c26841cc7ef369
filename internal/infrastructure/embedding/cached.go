package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
)

// Client Embedding 客户端
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// QueryCache 读穿缓存，由 redis.Cache 实现
type QueryCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// CachedClient 缓存单条文本（即用户问题）的向量；批量调用直接透传
type CachedClient struct {
	next   Client
	cache  QueryCache
	ttl    time.Duration
	prefix string
}

// NewCachedClient 创建带问题向量缓存的客户端
func NewCachedClient(next Client, cache QueryCache, ttl time.Duration, keyPrefix string) *CachedClient {
	return &CachedClient{next: next, cache: cache, ttl: ttl, prefix: keyPrefix}
}

// Model 模型名
func (c *CachedClient) Model() string { return c.next.Model() }

// Embed 单条文本走缓存，缓存不可用时降级为直接调用
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 || c.cache == nil || c.ttl <= 0 {
		return c.next.Embed(ctx, texts)
	}

	key := c.key(texts[0])
	var loadErr error
	loaded := false
	raw, err := c.cache.GetOrLoadSafe(ctx, key, c.ttl, func() (interface{}, error) {
		loaded = true
		vecs, err := c.next.Embed(ctx, texts)
		if err != nil {
			loadErr = err
			return nil, err
		}
		return vecs[0], nil
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		logger.Warn(ctx, "query embedding cache unavailable", "error", err.Error())
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		return c.next.Embed(ctx, texts)
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		return c.next.Embed(ctx, texts)
	}

	if loaded {
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	}
	return [][]float32{vec}, nil
}

func (c *CachedClient) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + "emb:" + c.next.Model() + ":" + hex.EncodeToString(sum[:])
}
