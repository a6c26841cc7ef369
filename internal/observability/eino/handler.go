package eino

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"

	"playlist-rag-api/pkg/logger"
	"playlist-rag-api/pkg/metrics"
)

// 调用次数与耗时由各客户端自行上报，这里只补充组件内部才知道的 token 用量

func newChatModelHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			if output == nil || output.TokenUsage == nil {
				return ctx
			}
			name := ""
			if output.Config != nil {
				name = output.Config.Model
			}
			u := output.TokenUsage
			recordTokens(components.ComponentOfChatModel, name, u.PromptTokens, u.CompletionTokens)
			logger.Debug(ctx, "chat model usage",
				"node", nodeName(info),
				"model", name,
				"prompt_tokens", u.PromptTokens,
				"completion_tokens", u.CompletionTokens,
			)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logger.Debug(ctx, "chat model call failed", "node", nodeName(info), "error", err.Error())
			return ctx
		},
	}
}

func newEmbeddingHandler() *cbtemplate.EmbeddingCallbackHandler {
	return &cbtemplate.EmbeddingCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *embedding.CallbackOutput) context.Context {
			if output == nil || output.TokenUsage == nil {
				return ctx
			}
			name := ""
			if output.Config != nil {
				name = output.Config.Model
			}
			recordTokens(components.ComponentOfEmbedding, name, output.TokenUsage.PromptTokens, 0)
			return ctx
		},
	}
}

func recordTokens(component components.Component, modelName string, prompt, completion int) {
	if prompt > 0 {
		metrics.ModelTokensUsed.WithLabelValues(string(component), modelName, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		metrics.ModelTokensUsed.WithLabelValues(string(component), modelName, "completion").Add(float64(completion))
	}
}

func nodeName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

// RunInfo 独立调用组件时用于初始化回调上下文
func RunInfo(name string, component components.Component) *einocb.RunInfo {
	return &einocb.RunInfo{Name: name, Type: "OpenAI", Component: component}
}
