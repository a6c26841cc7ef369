package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeMissingStore, http.StatusBadRequest},
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeIngestInProgress, http.StatusConflict},
		{CodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{CodeUpstreamError, http.StatusBadGateway},
		{CodeStorageError, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := New(c.code, "x").HTTPStatus; got != c.want {
			t.Errorf("code %s: HTTPStatus = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestAsAppErrorFindsWrapped(t *testing.T) {
	base := Wrap(fmt.Errorf("dial tcp: refused"), CodeUpstreamUnavailable, "embedding service unreachable")
	wrapped := fmt.Errorf("embed query: %w", base)

	if !IsAppError(wrapped) {
		t.Fatalf("IsAppError should see through fmt wrapping")
	}
	if got := AsAppError(wrapped); got.Code != CodeUpstreamUnavailable {
		t.Fatalf("AsAppError code = %s", got.Code)
	}
	if !HasCode(wrapped, CodeUpstreamUnavailable) {
		t.Fatalf("HasCode should match")
	}
	if HasCode(wrapped, CodeUpstreamError) {
		t.Fatalf("HasCode should not match a different code")
	}
}

func TestIsMatchesPredefinedByCode(t *testing.T) {
	err := fmt.Errorf("ask: %w", ErrMissingStore)
	if !stderrors.Is(err, ErrMissingStore) {
		t.Fatalf("errors.Is should match predefined error")
	}
	// WithDetail 返回副本，不能污染预定义错误
	_ = ErrMissingStore.WithDetail("other")
	if ErrMissingStore.Detail != "load a playlist first" {
		t.Fatalf("predefined error mutated: %q", ErrMissingStore.Detail)
	}
}

func TestAsAppErrorUnknown(t *testing.T) {
	got := AsAppError(stderrors.New("boom"))
	if got.Code != CodeUnknown || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected %+v", got)
	}
}
