package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestFromContextAddsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	ctx := WithContext(context.Background(), RunIDKey, "run-1")
	ctx = WithContext(ctx, SourceIndexKey, 3)
	Info(ctx, "fetching video")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if rec["run_id"] != "run-1" {
		t.Errorf("run_id = %v", rec["run_id"])
	}
	if rec["source_index"] != float64(3) {
		t.Errorf("source_index = %v", rec["source_index"])
	}
	if rec["msg"] != "fetching video" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestErrorAppendsErrorField(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")

	Error(context.Background(), "embedding failed", errString("upstream down"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["error"] != "upstream down" {
		t.Errorf("error = %v", rec["error"])
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING").String() != "WARN" {
		t.Fatalf("warning should map to WARN")
	}
	if parseLevel("bogus").String() != "INFO" {
		t.Fatalf("unknown level should default to INFO")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
