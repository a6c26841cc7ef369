// Package transcribe 语音转写实现：本地 whisper.cpp 服务进程或 OpenAI 兼容音频接口
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"playlist-rag-api/internal/config"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/pkg/logger"
)

// WhisperServer 持有一个常驻的 whisper-server 进程，模型只加载一次。
// Binary 为空时连接已运行的外部服务。
type WhisperServer struct {
	cfg      config.WhisperServerConfig
	language string
	baseURL  string

	httpClient *http.Client

	mu  sync.Mutex
	cmd *exec.Cmd
}

type verboseJSON struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewWhisperServer 创建 whisper-server 转写器（尚未启动）
func NewWhisperServer(cfg *config.TranscriptionConfig) *WhisperServer {
	ws := cfg.WhisperServer
	if ws.Host == "" {
		ws.Host = "127.0.0.1"
	}
	if ws.Port == 0 {
		ws.Port = 8178
	}
	if ws.StartTimeout <= 0 {
		ws.StartTimeout = 2 * time.Minute
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &WhisperServer{
		cfg:        ws,
		language:   lang,
		baseURL:    fmt.Sprintf("http://%s:%d", ws.Host, ws.Port),
		httpClient: &http.Client{},
	}
}

// Start 启动进程并等待就绪
func (w *WhisperServer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.Binary != "" && w.cmd == nil {
		if _, err := os.Stat(w.cfg.ModelPath); err != nil {
			return fmt.Errorf("whisper model not found: %w", err)
		}
		args := []string{
			"-m", w.cfg.ModelPath,
			"--host", w.cfg.Host,
			"--port", strconv.Itoa(w.cfg.Port),
		}
		if w.cfg.Threads > 0 {
			args = append(args, "-t", strconv.Itoa(w.cfg.Threads))
		}
		// 进程生命周期与服务一致，不绑定请求 context
		cmd := exec.Command(w.cfg.Binary, args...)
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start whisper server: %w", err)
		}
		w.cmd = cmd
		logger.Info(ctx, "whisper server started", "pid", cmd.Process.Pid, "model", filepath.Base(w.cfg.ModelPath))
	}

	return w.waitReady(ctx)
}

func (w *WhisperServer) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/", nil)
		if resp, err := w.httpClient.Do(req); err == nil {
			resp.Body.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("whisper server not ready at %s: %w", w.baseURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Transcribe 上传音频，翻译为英文并返回带时间戳的片段
func (w *WhisperServer) Transcribe(ctx context.Context, audioPath string) ([]entity.TranscriptChunk, error) {
	ctx, span := otel.Tracer("transcribe").Start(ctx, "transcribe.whisper.Transcribe")
	defer span.End()

	body, contentType, err := w.buildForm(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("whisper inference failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("whisper inference failed: status=%d body=%s", resp.StatusCode, msg)
	}

	var out verboseJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	chunks := make([]entity.TranscriptChunk, 0, len(out.Segments))
	for _, s := range out.Segments {
		chunks = append(chunks, entity.TranscriptChunk{Start: s.Start, End: s.End, Text: s.Text})
	}
	return chunks, nil
}

func (w *WhisperServer) buildForm(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	fields := map[string]string{
		"response_format": "verbose_json",
		"translate":       "true",
		"language":        w.language,
		"temperature":     "0.0",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// Close 终止 whisper-server 进程
func (w *WhisperServer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd == nil || w.cmd.Process == nil {
		return nil
	}
	err := w.cmd.Process.Kill()
	_ = w.cmd.Wait()
	w.cmd = nil
	return err
}
