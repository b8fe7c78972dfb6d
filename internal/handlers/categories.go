// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/category"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/middleware"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
)

// Categories groups the warning-category HTTP handlers. Reads are
// visibility-filtered per viewer; mutations require the edit-actions
// capability.
type Categories struct {
	service       *category.Service
	categoryStore *store.CategoryStore
	phraseStore   *store.PhraseStore
	perms         Capabilities
}

// NewCategories creates a new Categories handler group.
func NewCategories(service *category.Service, categoryStore *store.CategoryStore, phraseStore *store.PhraseStore, permsService Capabilities) *Categories {
	return &Categories{
		service:       service,
		categoryStore: categoryStore,
		phraseStore:   phraseStore,
		perms:         permsService,
	}
}

// categoryPayload is the request body for category create and update.
type categoryPayload struct {
	ParentID        *int64  `json:"parent_category_id"`
	DisplayOrder    int     `json:"display_order"`
	AllowedGroupIDs []int64 `json:"allowed_user_group_ids"`
	Title           string  `json:"title"`
}

// Tree returns the category tree visible to the current session user.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	tree, err := h.service.VisibleTree(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("category tree failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": tree})
}

// Get returns a single category, if it is usable by the session user.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cat, err := h.categoryStore.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("category lookup failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cat == nil {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}

	usable, err := h.service.IsUsable(r.Context(), cat, sess.UserID)
	if err != nil {
		slog.Error("category usability check failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !usable {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}

	cat.Title, err = h.phraseStore.Text(r.Context(),
		category.PhraseKey(category.PhraseTitle, cat.ID), "")
	if err != nil {
		slog.Error("category title lookup failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, cat)
}

// Create adds a new category with its title phrase. Requires the
// edit-actions capability.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	var req categoryPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cat := &models.Category{
		ParentID:        req.ParentID,
		DisplayOrder:    req.DisplayOrder,
		AllowedGroupIDs: req.AllowedGroupIDs,
	}

	saved, err := h.service.Save(r.Context(), cat, req.Title)
	if err != nil {
		slog.Error("category create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// Update modifies an existing category and its title phrase. Requires
// the edit-actions capability.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req categoryPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cat, err := h.categoryStore.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("category lookup failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cat == nil {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}

	cat.ParentID = req.ParentID
	cat.DisplayOrder = req.DisplayOrder
	cat.AllowedGroupIDs = req.AllowedGroupIDs

	saved, err := h.service.Save(r.Context(), cat, req.Title)
	if err != nil {
		slog.Error("category update failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// Renumber changes a category's identifier, carrying its phrases along.
// Requires the edit-actions capability.
func (h *Categories) Renumber(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		NewID int64 `json:"new_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.NewID <= 0 {
		respondError(w, http.StatusBadRequest, "new_id must be positive")
		return
	}

	if err := h.service.Renumber(r.Context(), id, req.NewID); err != nil {
		slog.Error("category renumber failed", "error", err, "category_id", id, "new_id", req.NewID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"warning_category_id": req.NewID})
}

// Rebuild recounts the category's warning definitions and stores the
// result. Requires the edit-actions capability.
func (h *Categories) Rebuild(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.service.RebuildWarningCount(r.Context(), id)
	if err != nil {
		slog.Error("category rebuild failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"warning_count": count})
}

// Delete removes a category, cascading to its definitions, actions and
// phrases. The last remaining root category cannot be deleted. Requires
// the edit-actions capability.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cat, err := h.categoryStore.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("category lookup failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cat == nil {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := h.service.Delete(r.Context(), cat); err != nil {
		if errors.Is(err, category.ErrLastCategory) {
			respondError(w, http.StatusConflict, "the last warning category cannot be deleted")
			return
		}
		slog.Error("category delete failed", "error", err, "category_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
