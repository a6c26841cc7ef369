package eino

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"playlist-rag-api/pkg/metrics"
)

func TestChatModelHandlerRecordsTokens(t *testing.T) {
	h := newChatModelHandler()
	counter := metrics.ModelTokensUsed.WithLabelValues(string(components.ComponentOfChatModel), "test-chat", "completion")
	before := testutil.ToFloat64(counter)

	h.OnEnd(context.Background(), RunInfo("answer", components.ComponentOfChatModel), &model.CallbackOutput{
		Config:     &model.Config{Model: "test-chat"},
		TokenUsage: &model.TokenUsage{PromptTokens: 10, CompletionTokens: 4},
	})

	if got := testutil.ToFloat64(counter) - before; got != 4 {
		t.Fatalf("completion tokens = %v, want 4", got)
	}
}

func TestChatModelHandlerIgnoresMissingUsage(t *testing.T) {
	h := newChatModelHandler()
	ctx := context.Background()
	if got := h.OnEnd(ctx, nil, &model.CallbackOutput{Message: schema.AssistantMessage("hi", nil)}); got != ctx {
		t.Fatal("context should be returned unchanged")
	}
	if got := h.OnEnd(ctx, nil, nil); got != ctx {
		t.Fatal("nil output should be ignored")
	}
}

func TestEmbeddingHandlerRecordsTokens(t *testing.T) {
	h := newEmbeddingHandler()
	counter := metrics.ModelTokensUsed.WithLabelValues(string(components.ComponentOfEmbedding), "test-embed", "prompt")
	before := testutil.ToFloat64(counter)

	h.OnEnd(context.Background(), nil, &embedding.CallbackOutput{
		Config:     &embedding.Config{Model: "test-embed"},
		TokenUsage: &embedding.TokenUsage{PromptTokens: 7},
	})

	if got := testutil.ToFloat64(counter) - before; got != 7 {
		t.Fatalf("prompt tokens = %v, want 7", got)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// 注册后独立调用组件也能触发全局回调
	ctx := callbacks.InitCallbacks(context.Background(), RunInfo("answer", components.ComponentOfChatModel))
	if ctx == nil {
		t.Fatal("nil context")
	}
}
