// Package router sets up all HTTP routes and middleware chains for the
// warnings service. Every route under /warnings and /users requires an
// authenticated session.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/handlers"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/middleware"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, auth *handlers.Auth, categories *handlers.Categories, warnings *handlers.Warnings) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check, no auth.
	r.Get("/health", healthHandler)

	// Login is rate-limited to slow down credential stuffing.
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	r.With(loginLimiter.Middleware).Post("/login", auth.Login)
	r.Post("/logout", auth.Logout)

	// Authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Route("/warnings", func(r chi.Router) {
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categories.Tree)
				r.Post("/", categories.Create)
				r.Get("/{id}", categories.Get)
				r.Put("/{id}", categories.Update)
				r.Delete("/{id}", categories.Delete)
				r.Post("/{id}/renumber", categories.Renumber)
				r.Post("/{id}/rebuild", categories.Rebuild)
			})

			r.Route("/definitions", func(r chi.Router) {
				r.Get("/", warnings.Definitions)
				r.Post("/", warnings.CreateDefinition)
				r.Delete("/{id}", warnings.DeleteDefinition)
			})

			r.Post("/actions", warnings.CreateAction)
			r.Delete("/{id}", warnings.DeleteWarning)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/warn", warnings.WarnForm)
			r.Post("/warn", warnings.Warn)
			r.Get("/warnings", warnings.ListWarnings)
			r.Get("/actions", warnings.ListActions)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
