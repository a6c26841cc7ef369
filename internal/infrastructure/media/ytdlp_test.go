package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playlist-rag-api/internal/config"
)

func TestYtDlp_ListPlaylist(t *testing.T) {
	y := NewYtDlp(&config.MediaConfig{})
	var gotArgs []string
	y.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "yt-dlp" {
			t.Errorf("binary = %s", name)
		}
		gotArgs = args
		return []byte(`{"title":"pl","entries":[{"id":"aaa","title":"One"},{"id":"bbb","title":"Two"}]}`), nil
	}

	entries, err := y.ListPlaylist(context.Background(), "https://youtube.com/playlist?list=x")
	if err != nil {
		t.Fatalf("ListPlaylist: %v", err)
	}
	if len(entries) != 2 || entries[1].ID != "bbb" || entries[1].Title != "Two" {
		t.Fatalf("entries = %+v", entries)
	}
	if strings.Join(gotArgs, " ") != "--flat-playlist -J https://youtube.com/playlist?list=x" {
		t.Fatalf("args = %v", gotArgs)
	}
}

func TestYtDlp_ListPlaylistBadJSON(t *testing.T) {
	y := NewYtDlp(&config.MediaConfig{})
	y.run = func(context.Context, string, ...string) ([]byte, error) { return []byte("oops"), nil }
	if _, err := y.ListPlaylist(context.Background(), "u"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestYtDlp_FetchAudio(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audios", "1_intro.mp3")

	y := NewYtDlp(&config.MediaConfig{Section: "*0-5", PlayerClient: "web"})
	var gotArgs []string
	y.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, os.WriteFile(out, []byte("mp3"), 0o644)
	}

	if err := y.FetchAudio(context.Background(), "https://www.youtube.com/watch?v=aaa", out); err != nil {
		t.Fatalf("FetchAudio: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"--download-sections *0-5",
		"youtube:player_client=web",
		"-o " + filepath.Join(dir, "audios", "1_intro") + ".%(ext)s",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestYtDlp_FetchAudioFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.mp3")
	y := NewYtDlp(&config.MediaConfig{})
	y.run = func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("private video") }
	if err := y.FetchAudio(context.Background(), "u", out); err == nil {
		t.Fatal("expected error")
	}

	y.run = func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	if err := y.FetchAudio(context.Background(), "u", out); err == nil {
		t.Fatal("expected missing file error")
	}
}
