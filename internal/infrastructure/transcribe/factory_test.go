package transcribe

import (
	"context"
	"testing"

	"playlist-rag-api/internal/config"
)

func TestLoadUnknownProvider(t *testing.T) {
	_, err := Load(context.Background(), &config.TranscriptionConfig{Provider: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLazyDefersLoad(t *testing.T) {
	l := NewLazy(&config.TranscriptionConfig{Provider: "nope"})

	// 未加载时 Close 为空操作
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 加载失败时返回错误且不缓存
	if _, err := l.Transcribe(context.Background(), "a.mp3"); err == nil {
		t.Fatal("expected load error")
	}
	if l.loaded != nil {
		t.Fatal("failed load must not be cached")
	}
}

func TestLazyLoadsOnce(t *testing.T) {
	l := NewLazy(&config.TranscriptionConfig{Provider: "openai"})
	_, _ = l.Transcribe(context.Background(), "/nonexistent/a.mp3")

	first := l.loaded
	if first == nil {
		t.Fatal("transcriber should be loaded after first call")
	}
	_, _ = l.Transcribe(context.Background(), "/nonexistent/a.mp3")
	if l.loaded != first {
		t.Fatal("transcriber reloaded")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.loaded != nil {
		t.Fatal("Close should drop the loaded transcriber")
	}
}
