package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"playlist-rag-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	allowed int
	calls   int
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	return f.calls <= f.allowed, nil
}

func (f *fakeLimiter) RateLimitKey(clientIP, route string) string {
	return "ratelimit:" + clientIP + ":" + route
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: 2}
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerSecond: 2}, limiter))
	r.GET("/ask", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := serve(r, "/ask"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	if w := serve(r, "/ask"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d", w.Code)
	}
	if limiter.keys[0] != "ratelimit:192.0.2.1:/ask" {
		t.Fatalf("key = %q", limiter.keys[0])
	}
}

func TestRateLimit_FailOpenAndDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: true}, &fakeLimiter{err: errors.New("redis down")}))
	r.GET("/ask", func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := serve(r, "/ask"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	limiter := &fakeLimiter{}
	r = gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: false}, limiter))
	r.GET("/ask", func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := serve(r, "/ask"); w.Code != http.StatusOK || limiter.calls != 0 {
		t.Fatalf("status = %d calls = %d", w.Code, limiter.calls)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	w := serve(r, "/x")
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id = %q header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "abc" {
		t.Fatalf("propagated request id = %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	if w := serve(r, "/panic"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMetricsSkipsStreamTiming(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET(EventsPath, func(c *gin.Context) {
		c.String(http.StatusOK, "data: {}\n\n")
	})
	r.GET("/v1/ingest/status", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	before := testutil.CollectAndCount(metrics.HTTPRequestDuration)
	sizeBefore := testutil.CollectAndCount(metrics.HTTPResponseSize)
	serve(r, EventsPath)

	// SSE 只计请求数
	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, EventsPath, "200")); got != 1 {
		t.Fatalf("stream requests_total = %v, want 1", got)
	}
	if after := testutil.CollectAndCount(metrics.HTTPRequestDuration); after != before {
		t.Fatalf("stream request recorded a duration series: %d -> %d", before, after)
	}
	if n := testutil.CollectAndCount(metrics.HTTPResponseSize); n != sizeBefore {
		t.Fatalf("stream response size recorded: %d -> %d series", sizeBefore, n)
	}

	serve(r, "/v1/ingest/status")
	if after := testutil.CollectAndCount(metrics.HTTPRequestDuration); after != before+1 {
		t.Fatalf("duration series = %d, want %d", after, before+1)
	}
	if n := testutil.CollectAndCount(metrics.HTTPResponseSize); n != sizeBefore+1 {
		t.Fatalf("response size series = %d, want %d", n, sizeBefore+1)
	}
}

func TestCORS(t *testing.T) {
	preflight := func(h gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(h)
		r.POST("/ask", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// 默认放开所有来源
	for _, cfg := range []CORSConfig{{}, {AllowedOrigins: []string{"*"}}} {
		w := preflight(CORS(cfg), "http://localhost:3000")
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("origins %v: allow-origin = %q, want *", cfg.AllowedOrigins, got)
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "" {
			t.Errorf("origins %v: wildcard origin must not allow credentials", cfg.AllowedOrigins)
		}
	}

	restricted := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}})
	w := preflight(restricted, "https://app.example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("configured origin should allow credentials")
	}
	if w = preflight(restricted, "https://evil.example.com"); w.Code != http.StatusForbidden {
		t.Errorf("foreign origin status = %d, want 403", w.Code)
	}
}
