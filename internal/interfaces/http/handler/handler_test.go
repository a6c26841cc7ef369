package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/domain/entity"
	apperrors "playlist-rag-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQA struct {
	answer    *retrieval.Answer
	retrieval *retrieval.Retrieval
	err       error
	lastQuery string
}

func (f *fakeQA) Ask(_ context.Context, query string) (*retrieval.Answer, error) {
	f.lastQuery = query
	return f.answer, f.err
}

func (f *fakeQA) Retrieve(_ context.Context, query string) (*retrieval.Retrieval, error) {
	f.lastQuery = query
	return f.retrieval, f.err
}

type fakeIngest struct {
	startErr error
	resetErr error
	waitSnap ingest.Snapshot
	status   ingest.Status
	runs     []*entity.IngestRun
	sources  []entity.Source
	lastURL  string
	limit    int
	resets   int
}

func (f *fakeIngest) Start(_ context.Context, url string) (*entity.IngestRun, error) {
	f.lastURL = url
	if f.startErr != nil {
		return nil, f.startErr
	}
	run := entity.NewIngestRun("run-1", url)
	run.Start()
	return run, nil
}

func (f *fakeIngest) Wait(_ context.Context, runID string) (ingest.Snapshot, error) {
	return f.waitSnap, nil
}

func (f *fakeIngest) Reset(context.Context) error {
	f.resets++
	return f.resetErr
}

func (f *fakeIngest) Status(context.Context) (*ingest.Status, error) {
	st := f.status
	return &st, nil
}

func (f *fakeIngest) Watch(ctx context.Context) (<-chan ingest.Snapshot, func(), error) {
	ch := make(chan ingest.Snapshot, 2)
	ch <- f.status.Snapshot
	close(ch)
	return ch, func() {}, nil
}

func (f *fakeIngest) Runs(_ context.Context, limit int) ([]*entity.IngestRun, error) {
	f.limit = limit
	return f.runs, nil
}

func (f *fakeIngest) Sources(context.Context) ([]entity.Source, error) {
	return f.sources, nil
}

func newTestEngine(qa QAService, ing IngestService) *gin.Engine {
	r := gin.New()
	qh := NewQAHandler(qa)
	ih := NewIngestHandler(ing)
	r.POST("/ask", qh.Ask)
	r.POST("/v1/retrieve", qh.Retrieve)
	r.POST("/load-youtube", ih.Start)
	r.GET("/status", ih.Status)
	r.GET("/v1/ingest/events", ih.Events)
	r.GET("/v1/ingest/runs", ih.Runs)
	r.GET("/v1/sources", ih.Sources)
	r.POST("/reset", ih.Reset)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode   string   `json:"error_code"`
		Details     string   `json:"details"`
		Suggestions []string `json:"suggestions"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return env
}

func TestAsk(t *testing.T) {
	qa := &fakeQA{answer: &retrieval.Answer{Text: "Video 2 covers it.", Kind: retrieval.KindLocation}}
	r := newTestEngine(qa, &fakeIngest{})

	w := do(r, http.MethodPost, "/ask", `{"query":"where is recursion explained?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	env := decode(t, w)
	var data struct {
		Answer      string `json:"answer"`
		Kind        string `json:"kind"`
		OutOfDomain bool   `json:"out_of_domain"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Answer != "Video 2 covers it." || data.Kind != "location" || data.OutOfDomain {
		t.Fatalf("data = %+v", data)
	}
	if qa.lastQuery != "where is recursion explained?" {
		t.Fatalf("query = %q", qa.lastQuery)
	}
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"missing query", `{}`, nil, http.StatusBadRequest, apperrors.CodeInvalidParam},
		{"no store", `{"query":"q"}`, apperrors.ErrMissingStore, http.StatusBadRequest, apperrors.CodeMissingStore},
		{"embedding down", `{"query":"q"}`, apperrors.UpstreamUnavailable("embedding service", errors.New("dial tcp")), http.StatusServiceUnavailable, apperrors.CodeUpstreamUnavailable},
		{"generator failed", `{"query":"q"}`, apperrors.UpstreamFailure("generation service", "status 500", nil), http.StatusBadGateway, apperrors.CodeUpstreamError},
		{"unknown", `{"query":"q"}`, errors.New("boom"), http.StatusInternalServerError, apperrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(&fakeQA{err: tt.err}, &fakeIngest{})
			w := do(r, http.MethodPost, "/ask", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			env := decode(t, w)
			if env.Error == nil || env.Error.ErrorCode != string(tt.wantErr) {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestAsk_MissingStoreGuidance(t *testing.T) {
	r := newTestEngine(&fakeQA{err: apperrors.ErrMissingStore}, &fakeIngest{})
	env := decode(t, do(r, http.MethodPost, "/ask", `{"query":"q"}`))
	if env.Error == nil || env.Error.Details != "load a playlist first" {
		t.Fatalf("error = %+v", env.Error)
	}
	if len(env.Error.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
}

func TestRetrieve(t *testing.T) {
	seg := entity.Segment{ChunkID: 3, SourceIndex: 1, SourceTitle: "Intro", StartTime: 1.5, EndTime: 4, Text: "hello"}
	qa := &fakeQA{retrieval: &retrieval.Retrieval{
		Query:   "q",
		Kind:    retrieval.KindConceptual,
		Ranking: &retrieval.Ranking{Hits: []retrieval.Hit{{Segment: seg, Score: 0.8}}, MaxScore: 0.8},
	}}
	r := newTestEngine(qa, &fakeIngest{})

	w := do(r, http.MethodPost, "/v1/retrieve", `{"query":"q"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Kind     string  `json:"kind"`
		MaxScore float64 `json:"max_score"`
		Hits     []struct {
			ChunkID    int     `json:"chunk_id"`
			VideoTitle string  `json:"video_title"`
			Score      float64 `json:"score"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Kind != "conceptual" || len(data.Hits) != 1 || data.Hits[0].ChunkID != 3 || data.Hits[0].VideoTitle != "Intro" {
		t.Fatalf("data = %+v", data)
	}
}

func TestStartIngest(t *testing.T) {
	ing := &fakeIngest{}
	r := newTestEngine(&fakeQA{}, ing)

	w := do(r, http.MethodPost, "/load-youtube", `{"url":"https://www.youtube.com/playlist?list=PL1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		RunID string `json:"run_id"`
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.RunID != "run-1" || data.Phase != "running" {
		t.Fatalf("data = %+v", data)
	}
	if ing.lastURL != "https://www.youtube.com/playlist?list=PL1" {
		t.Fatalf("url = %q", ing.lastURL)
	}
}

func TestStartIngest_Wait(t *testing.T) {
	ing := &fakeIngest{waitSnap: ingest.Snapshot{RunID: "run-1", Phase: entity.PhaseReady, Message: "Playlist ready"}}
	r := newTestEngine(&fakeQA{}, ing)

	w := do(r, http.MethodPost, "/load-youtube?wait=true", `{"url":"https://www.youtube.com/playlist?list=PL1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Phase   string `json:"phase"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Phase != "ready" || data.Message != "Playlist ready" {
		t.Fatalf("data = %+v", data)
	}
}

func TestStartIngest_Conflict(t *testing.T) {
	r := newTestEngine(&fakeQA{}, &fakeIngest{startErr: apperrors.ErrIngestInProgress})
	w := do(r, http.MethodPost, "/load-youtube", `{"url":"https://www.youtube.com/playlist?list=PL1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestStatusAndReset(t *testing.T) {
	now := time.Now()
	ing := &fakeIngest{status: ingest.Status{
		Snapshot: ingest.Snapshot{RunID: "run-1", Phase: entity.PhaseReady, Message: "Playlist ready", Log: []string{"Playlist has 2 videos"}, FinishedAt: &now},
		Ready:    true,
	}}
	r := newTestEngine(&fakeQA{}, ing)

	w := do(r, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st struct {
		Phase string   `json:"phase"`
		Ready bool     `json:"ready"`
		Log   []string `json:"log"`
		RunID string   `json:"run_id"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Phase != "ready" || !st.Ready || len(st.Log) != 1 || st.RunID != "run-1" {
		t.Fatalf("status = %+v", st)
	}

	if w := do(r, http.MethodPost, "/reset", ""); w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}
	if ing.resets != 1 {
		t.Fatalf("resets = %d", ing.resets)
	}

	ing.resetErr = apperrors.ErrIngestInProgress
	if w := do(r, http.MethodPost, "/reset", ""); w.Code != http.StatusConflict {
		t.Fatalf("reset during ingest status = %d", w.Code)
	}
}

func TestRunsAndSources(t *testing.T) {
	run := entity.NewIngestRun("run-1", "https://example.com/list")
	run.Start()
	run.Skip(2, "Broken", "download failed")
	run.Complete(10)
	ing := &fakeIngest{
		runs:    []*entity.IngestRun{run},
		sources: []entity.Source{{Index: 1, Title: "Intro", Filename: "1_intro", URL: "https://youtu.be/a"}},
	}
	r := newTestEngine(&fakeQA{}, ing)

	w := do(r, http.MethodGet, "/v1/ingest/runs?limit=500", "")
	if w.Code != http.StatusOK {
		t.Fatalf("runs status = %d", w.Code)
	}
	if ing.limit != maxRunLimit {
		t.Fatalf("limit = %d, want %d", ing.limit, maxRunLimit)
	}
	var runs struct {
		Runs []struct {
			Phase   string `json:"phase"`
			Skipped []struct {
				Index int `json:"index"`
			} `json:"skipped"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs.Runs) != 1 || runs.Runs[0].Phase != "ready" || runs.Runs[0].Skipped[0].Index != 2 {
		t.Fatalf("runs = %+v", runs)
	}

	if w := do(r, http.MethodGet, "/v1/ingest/runs?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", w.Code)
	}

	w = do(r, http.MethodGet, "/v1/sources", "")
	var sources struct {
		Sources []struct {
			VideoNumber int    `json:"video_number"`
			Filename    string `json:"filename"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &sources); err != nil {
		t.Fatal(err)
	}
	if len(sources.Sources) != 1 || sources.Sources[0].VideoNumber != 1 || sources.Sources[0].Filename != "1_intro" {
		t.Fatalf("sources = %+v", sources)
	}
}

func TestEvents(t *testing.T) {
	ing := &fakeIngest{status: ingest.Status{Snapshot: ingest.Snapshot{Phase: entity.PhaseRunning, Message: "Playlist has 3 videos"}}}
	r := newTestEngine(&fakeQA{}, ing)

	// gin 的 Stream 需要 http.CloseNotifier
	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ingest/events", nil))
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event:status") || !strings.Contains(body, "Playlist has 3 videos") {
		t.Fatalf("body = %q", body)
	}
}

type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestReady(t *testing.T) {
	h := NewHealthHandler("1.0.0",
		func(context.Context) bool { return false },
		DependencyCheck{Name: "redis", Required: true, Check: func(context.Context) error { return nil }},
		DependencyCheck{Name: "milvus", Check: func(context.Context) error { return errors.New("down") }},
	)
	r := gin.New()
	r.GET("/ready", h.Ready)

	w := do(r, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp readinessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Store != "missing" || resp.Checks["milvus"].Status != "degraded" || resp.Checks["redis"].Status != "ok" {
		t.Fatalf("resp = %+v", resp)
	}

	h = NewHealthHandler("1.0.0", nil,
		DependencyCheck{Name: "postgres", Required: true, Check: func(context.Context) error { return errors.New("refused") }},
	)
	r = gin.New()
	r.GET("/ready", h.Ready)
	if w := do(r, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLegacyAsk(t *testing.T) {
	qa := &fakeQA{answer: &retrieval.Answer{Text: "Video 2 covers it.", Kind: retrieval.KindLocation}}
	r := gin.New()
	r.POST("/ask", NewQAHandler(qa).LegacyAsk)

	w := do(r, http.MethodPost, "/ask", `{"query":"where is it"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 旧前端读取 res.answer，不能有外层包装
	if body["answer"] != "Video 2 covers it." || len(body) != 1 {
		t.Fatalf("body = %v, want only top-level answer", body)
	}

	// 错误仍使用统一错误体
	qa.err = apperrors.ErrMissingStore
	w = do(r, http.MethodPost, "/ask", `{"query":"where is it"}`)
	env := decode(t, w)
	if w.Code == http.StatusOK || env.Error == nil || env.Error.ErrorCode == "" {
		t.Fatalf("error body = %s (status %d)", w.Body.String(), w.Code)
	}
}
