package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"playlist-rag-api/internal/config"
	apperrors "playlist-rag-api/pkg/errors"
)

func TestOllamaClient_Embed(t *testing.T) {
	var got embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(&config.EmbeddingConfig{Endpoint: srv.URL + "/"})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got.Model != "bge-m3" || len(got.Input) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if len(vecs) != 2 || vecs[1][1] != 1 {
		t.Fatalf("vecs = %v", vecs)
	}
}

func TestOllamaClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    apperrors.ErrorCode
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
			code: apperrors.CodeUpstreamError,
		},
		{
			name: "bad body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			code: apperrors.CodeUpstreamError,
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
			},
			code: apperrors.CodeUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewOllamaClient(&config.EmbeddingConfig{Endpoint: srv.URL})
			_, err := c.Embed(context.Background(), []string{"a", "b"})
			if !apperrors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestOllamaClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOllamaClient(&config.EmbeddingConfig{Endpoint: url})
	_, err := c.Embed(context.Background(), []string{"a"})
	if !apperrors.HasCode(err, apperrors.CodeUpstreamUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if apperrors.AsAppError(err).HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", apperrors.AsAppError(err).HTTPStatus)
	}
}

func TestOllamaClient_EmptyInput(t *testing.T) {
	c := NewOllamaClient(&config.EmbeddingConfig{Endpoint: "http://127.0.0.1:1"})
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Fatalf("vecs = %v, err = %v", vecs, err)
	}
}
