package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/handlers"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/session"
)

// testRouter builds the router with empty handler groups. Routes behind
// RequireAuth reject before any handler dependency is touched.
func testRouter() http.Handler {
	sessions := session.NewStore(nil, false)
	return New(sessions, &handlers.Auth{}, &handlers.Categories{}, &handlers.Warnings{})
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/warnings/categories"},
		{http.MethodPost, "/warnings/categories"},
		{http.MethodGet, "/warnings/definitions"},
		{http.MethodDelete, "/warnings/definitions/3"},
		{http.MethodGet, "/users/10/warn"},
		{http.MethodPost, "/users/10/warn"},
		{http.MethodGet, "/users/10/warnings"},
		{http.MethodGet, "/users/10/actions"},
	}

	r := testRouter()
	for _, tt := range paths {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tt.method, tt.path, rec.Code)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
