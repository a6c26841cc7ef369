package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
	"playlist-rag-api/pkg/tracer"
)

// Options 问答超时配置，<= 0 表示不额外限制
type Options struct {
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Answerer 检索增强问答
type Answerer struct {
	provider  *StoreProvider
	embedder  Embedder
	generator Generator
	ranker    *Ranker
	opts      Options
}

// NewAnswerer 创建 Answerer
func NewAnswerer(provider *StoreProvider, embedder Embedder, generator Generator, ranker *Ranker, opts Options) *Answerer {
	return &Answerer{
		provider:  provider,
		embedder:  embedder,
		generator: generator,
		ranker:    ranker,
		opts:      opts,
	}
}

// Ask 回答问题。与播放列表无关的问题直接返回固定拒答，不调用生成模型。
func (a *Answerer) Ask(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "retrieval.Ask")
	defer span.End()

	ret, err := a.retrieve(ctx, query)
	if err != nil {
		metrics.AskTotal.WithLabelValues("", "error").Inc()
		tracer.Fail(span, err)
		return nil, err
	}

	if ret.Ranking.OutOfDomain {
		metrics.AskTotal.WithLabelValues("out_of_domain", "ok").Inc()
		metrics.AskDuration.WithLabelValues("out_of_domain").Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Bool("ask.out_of_domain", true))
		logger.Info(ctx, "question rejected by relevance gate", "max_score", ret.Ranking.MaxScore)
		return &Answer{Text: RefusalMessage, OutOfDomain: true}, nil
	}

	prompt := ComposePrompt(ret.Query, ret.Ranking.Hits, ret.Kind)

	genCtx, cancel := withTimeout(ctx, a.opts.GenerateTimeout)
	defer cancel()
	text, err := a.generator.Generate(genCtx, prompt)
	if err != nil {
		metrics.AskTotal.WithLabelValues(string(ret.Kind), "error").Inc()
		tracer.Fail(span, err)
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	metrics.AskTotal.WithLabelValues(string(ret.Kind), "ok").Inc()
	metrics.AskDuration.WithLabelValues(string(ret.Kind)).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("ask.kind", string(ret.Kind)),
		attribute.Int("ask.hits", len(ret.Ranking.Hits)),
	)
	logger.Info(ctx, "question answered",
		"kind", ret.Kind,
		"hits", len(ret.Ranking.Hits),
		"max_score", ret.Ranking.MaxScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Answer{
		Text: strings.TrimSpace(text),
		Kind: ret.Kind,
		Hits: ret.Ranking.Hits,
	}, nil
}

// Retrieve 只做检索与分类，不调用生成模型
func (a *Answerer) Retrieve(ctx context.Context, query string) (*Retrieval, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
	defer span.End()
	return a.retrieve(ctx, query)
}

func (a *Answerer) retrieve(ctx context.Context, query string) (*Retrieval, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("query is required")
	}

	st, err := a.provider.Current(ctx)
	if err != nil {
		return nil, err
	}

	embedCtx, cancel := withTimeout(ctx, a.opts.EmbedTimeout)
	defer cancel()
	vecs, err := a.embedder.Embed(embedCtx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, apperrors.New(apperrors.CodeUpstreamError, "embedding service returned unexpected vector count").
			WithDetail(fmt.Sprintf("expected 1, got %d", len(vecs)))
	}

	ranking, err := a.ranker.Rank(vecs[0], st)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamError, "query embedding does not match the segment table")
	}

	return &Retrieval{
		Query:   query,
		Kind:    Classify(query),
		Ranking: ranking,
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
