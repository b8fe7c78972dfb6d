// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package middleware

import "net/http"

// SecureHeaders sets the baseline response headers for the JSON API.
// The API is never rendered in a browser frame and its responses carry
// per-user moderation data, so framing is denied and caching disabled.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
