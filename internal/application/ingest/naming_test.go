package ingest

import (
	"strings"
	"testing"
)

func TestSafeTitle(t *testing.T) {
	cases := map[string]string{
		"  Intro to Go!  ":           "intro_to_go",
		"Lesson #3: Maps & Slices":   "lesson_3_maps_slices",
		"Tabs\tand   spaces":         "tabsand_spaces",
		"Ünïcode Títle":              "ncode_ttle",
		strings.Repeat("abcde ", 20): strings.Repeat("abcde_", 8) + "ab",
	}
	for in, want := range cases {
		if got := SafeTitle(in); got != want {
			t.Errorf("SafeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseNameAndFallbackTitle(t *testing.T) {
	if got := BaseName(3, "Intro to Go"); got != "3_intro_to_go" {
		t.Errorf("BaseName = %q", got)
	}
	title := DisplayTitle(7, "  ")
	if title != "video_7" {
		t.Errorf("DisplayTitle fallback = %q", title)
	}
	if got := BaseName(7, title); got != "7_video_7" {
		t.Errorf("BaseName fallback = %q", got)
	}
	if got := WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("WatchURL = %q", got)
	}
}

func TestShortTitleCountsRunes(t *testing.T) {
	long := strings.Repeat("é", 40)
	if got := []rune(shortTitle(long)); len(got) != 30 {
		t.Fatalf("shortTitle kept %d runes", len(got))
	}
	if shortTitle("short") != "short" {
		t.Fatalf("short titles must be unchanged")
	}
}
