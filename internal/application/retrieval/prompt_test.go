package retrieval

import (
	"strings"
	"testing"

	"playlist-rag-api/internal/domain/entity"
)

func sampleHits() []Hit {
	return []Hit{
		{Segment: entity.Segment{ChunkID: 4, SourceIndex: 2, SourceTitle: "Closures in Depth", StartTime: 12.5, EndTime: 18.25, Text: "a closure captures variables"}, Score: 0.9},
		{Segment: entity.Segment{ChunkID: 9, SourceIndex: 5, SourceTitle: "Goroutines 101", StartTime: 61, EndTime: 64.75, Text: "goroutines are cheap"}, Score: 0.8},
	}
}

func TestComposeLocationPromptCarriesCitations(t *testing.T) {
	p := ComposePrompt("Where are closures explained?", sampleHits(), KindLocation)

	for _, want := range []string{
		`"video_number":2`, `"video_title":"Closures in Depth"`, `"start":12.5`, `"end":18.25`,
		`"video_number":5`, `"video_title":"Goroutines 101"`, `"start":61`, `"end":64.75`,
		`"Where are closures explained?"`,
		"video number", "start time and end time", "Do NOT mention internal data formats.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("location prompt missing %q", want)
		}
	}
}

func TestComposeConceptualPromptOmitsMetadata(t *testing.T) {
	p := ComposePrompt("What is a closure?", sampleHits(), KindConceptual)

	for _, want := range []string{`{"text":"a closure captures variables"}`, `{"text":"goroutines are cheap"}`, `"What is a closure?"`} {
		if !strings.Contains(p, want) {
			t.Errorf("conceptual prompt missing %q", want)
		}
	}
	for _, banned := range []string{"Closures in Depth", "Goroutines 101", "video_number", "12.5", "18.25", `"start"`, `"end"`} {
		if strings.Contains(p, banned) {
			t.Errorf("conceptual prompt must not contain %q", banned)
		}
	}
	if !strings.Contains(p, "Do NOT mention video numbers, titles, or timestamps.") {
		t.Errorf("conceptual prompt missing instruction")
	}
}
