package transcribe

import (
	"context"
	"fmt"
	"sync"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/domain/entity"
)

// Load 按配置创建并启动转写器，调用方负责 Close
func Load(ctx context.Context, cfg *config.TranscriptionConfig) (ingest.Transcriber, error) {
	switch cfg.Provider {
	case "", "whisper_server":
		ws := NewWhisperServer(cfg)
		if err := ws.Start(ctx); err != nil {
			_ = ws.Close()
			return nil, err
		}
		return ws, nil
	case "openai":
		return NewOpenAITranslator(&cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider: %s", cfg.Provider)
	}
}

// Lazy 首次转写时才加载模型，供不一定执行导入的命令行进程使用
type Lazy struct {
	cfg *config.TranscriptionConfig

	mu     sync.Mutex
	loaded ingest.Transcriber
}

// NewLazy 创建延迟加载的转写器
func NewLazy(cfg *config.TranscriptionConfig) *Lazy {
	return &Lazy{cfg: cfg}
}

// Transcribe 转写，必要时先加载模型
func (l *Lazy) Transcribe(ctx context.Context, audioPath string) ([]entity.TranscriptChunk, error) {
	l.mu.Lock()
	if l.loaded == nil {
		t, err := Load(ctx, l.cfg)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.loaded = t
	}
	t := l.loaded
	l.mu.Unlock()
	return t.Transcribe(ctx, audioPath)
}

// Close 释放已加载的模型
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded == nil {
		return nil
	}
	err := l.loaded.Close()
	l.loaded = nil
	return err
}
