// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

// Package handlers contains the HTTP handlers for the warnings service.
// Handlers are grouped by concern (auth, categories, warnings) and receive
// their dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps the size of accepted JSON request bodies.
const maxBodyBytes = 1 << 20

// Capabilities answers permission checks for the handler groups.
// Satisfied by *perms.Service.
type Capabilities interface {
	HasCapability(ctx context.Context, userID int64, capability string) (bool, error)
	GroupTitles(ctx context.Context) (map[int64]string, error)
}

// can checks a capability for the given user, writing a 403 when the
// check fails. Returns true when the request may proceed.
func can(w http.ResponseWriter, r *http.Request, caps Capabilities, userID int64, capability string) bool {
	ok, err := caps.HasCapability(r.Context(), userID, capability)
	if err != nil {
		slog.Error("capability check failed", "error", err, "capability", capability)
		respondError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if !ok {
		respondError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error envelope with the given status code.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// urlID extracts a numeric {param} from the request URL.
func urlID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
