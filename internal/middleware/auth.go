// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/session"
)

type contextKey string

// SessionKey is the context key under which LoadSession stores the
// authenticated session.
const SessionKey contextKey = "session"

// LoadSession resolves the session cookie against Valkey and attaches
// the result to the request context. It never rejects a request; a
// missing or broken session simply leaves the context empty.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				r = r.WithContext(context.WithValue(r.Context(), SessionKey, data))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a loaded session with a JSON 401.
// Must run after LoadSession.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx returns the session attached by LoadSession, or nil
// for unauthenticated requests.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
