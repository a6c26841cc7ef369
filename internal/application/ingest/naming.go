package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxSafeTitleRunes = 50
	maxShownTitle     = 30
	watchURLPrefix    = "https://www.youtube.com/watch?v="
)

var (
	unsafeTitleChars = regexp.MustCompile(`[^a-z0-9 ]`)
	titleSpaces      = regexp.MustCompile(`\s+`)
)

// SafeTitle 生成文件名安全的标题：小写、去首尾空白、仅保留 [a-z0-9 ]、空白转下划线、截断 50 字符
func SafeTitle(title string) string {
	t := strings.TrimSpace(strings.ToLower(title))
	t = unsafeTitleChars.ReplaceAllString(t, "")
	t = titleSpaces.ReplaceAllString(t, "_")
	if len(t) > maxSafeTitleRunes {
		// 此时只剩 ASCII，按字节截断即可
		t = t[:maxSafeTitleRunes]
	}
	return t
}

// DisplayTitle 视频标题，缺失时回退为 video_<idx>
func DisplayTitle(idx int, title string) string {
	if strings.TrimSpace(title) == "" {
		return fmt.Sprintf("video_%d", idx)
	}
	return title
}

// BaseName 音频与转写文件的基础名 <idx>_<safe_title>
func BaseName(idx int, title string) string {
	return fmt.Sprintf("%d_%s", idx, SafeTitle(title))
}

// WatchURL 视频播放地址
func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

// shortTitle 进度消息中展示的标题前缀
func shortTitle(title string) string {
	r := []rune(title)
	if len(r) > maxShownTitle {
		return string(r[:maxShownTitle])
	}
	return title
}
