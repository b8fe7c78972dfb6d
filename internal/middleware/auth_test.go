package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/session"
)

func TestRequireAuthWithoutSession(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("downstream handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/warnings/categories", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestRequireAuthWithSession(t *testing.T) {
	called := false
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		sess := SessionFromCtx(r.Context())
		if sess == nil || sess.UserID != 20 {
			t.Errorf("session in handler = %+v", sess)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/warnings/categories", nil)
	ctx := context.WithValue(req.Context(), SessionKey, &session.Data{UserID: 20, Username: "mod_bob"})

	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))
	if !called {
		t.Error("downstream handler should run for an authenticated request")
	}
}

func TestSessionFromCtxEmpty(t *testing.T) {
	if got := SessionFromCtx(context.Background()); got != nil {
		t.Errorf("SessionFromCtx on empty context = %+v", got)
	}
}
