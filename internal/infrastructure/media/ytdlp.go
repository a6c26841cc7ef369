// Package media 通过 yt-dlp 解析播放列表并下载音频片段
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/config"
	"playlist-rag-api/pkg/logger"
)

const (
	defaultBinary       = "yt-dlp"
	defaultSection      = "*0-10"
	defaultPlayerClient = "android"
)

// runFunc 执行外部命令并返回 stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// YtDlp yt-dlp 命令封装
type YtDlp struct {
	binary       string
	section      string
	playerClient string
	run          runFunc
}

type playlistJSON struct {
	Entries []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"entries"`
}

// NewYtDlp 创建 yt-dlp 封装
func NewYtDlp(cfg *config.MediaConfig) *YtDlp {
	y := &YtDlp{
		binary:       cfg.YtDlpPath,
		section:      cfg.Section,
		playerClient: cfg.PlayerClient,
		run:          runCommand,
	}
	if y.binary == "" {
		y.binary = defaultBinary
	}
	if y.section == "" {
		y.section = defaultSection
	}
	if y.playerClient == "" {
		y.playerClient = defaultPlayerClient
	}
	return y
}

// ListPlaylist 列出播放列表条目（不下载）
func (y *YtDlp) ListPlaylist(ctx context.Context, playlistURL string) ([]ingest.PlaylistEntry, error) {
	ctx, span := otel.Tracer("media").Start(ctx, "media.ListPlaylist")
	defer span.End()

	out, err := y.run(ctx, y.binary, "--flat-playlist", "-J", playlistURL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list playlist: %w", err)
	}

	var pl playlistJSON
	if err := json.Unmarshal(out, &pl); err != nil {
		return nil, fmt.Errorf("decode playlist json: %w", err)
	}

	entries := make([]ingest.PlaylistEntry, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		entries = append(entries, ingest.PlaylistEntry{ID: e.ID, Title: e.Title})
	}
	span.SetAttributes(attribute.Int("playlist.entries", len(entries)))
	return entries, nil
}

// FetchAudio 下载视频开头片段并转为 mp3，写入 outPath
func (y *YtDlp) FetchAudio(ctx context.Context, videoURL, outPath string) error {
	ctx, span := otel.Tracer("media").Start(ctx, "media.FetchAudio")
	defer span.End()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	args := y.fetchArgs(videoURL, outPath)
	if _, err := y.run(ctx, y.binary, args...); err != nil {
		span.RecordError(err)
		return err
	}

	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("audio file missing after download: %w", err)
	}
	logger.Debug(ctx, "audio downloaded", "path", outPath)
	return nil
}

func (y *YtDlp) fetchArgs(videoURL, outPath string) []string {
	// 输出模板交给 yt-dlp 决定扩展名，转码后得到 <stem>.mp3
	stem := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	return []string{
		"-x",
		"--audio-format", "mp3",
		"--download-sections", y.section,
		"--force-keyframes-at-cuts",
		"--extractor-args", "youtube:player_client=" + y.playerClient,
		"-o", stem + ".%(ext)s",
		videoURL,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return stdout.Bytes(), nil
}
