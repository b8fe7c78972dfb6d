// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/category"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/escalation"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/middleware"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/warn"
)

// recentWarningsLimit caps the number of warnings returned per user.
const recentWarningsLimit = 50

// warnFormRecentLimit is how many recent warnings the warn form shows.
const warnFormRecentLimit = 5

// Warnings groups the warning, definition and consequence HTTP handlers.
type Warnings struct {
	warner          *warn.Warner
	categories      *category.Service
	warningStore    *store.WarningStore
	definitionStore *store.DefinitionStore
	actionStore     *store.ActionStore
	changeStore     *store.ChangeStore
	engine          *escalation.Engine
	perms           Capabilities
}

// NewWarnings creates a new Warnings handler group.
func NewWarnings(warner *warn.Warner, categories *category.Service, warningStore *store.WarningStore, definitionStore *store.DefinitionStore, actionStore *store.ActionStore, changeStore *store.ChangeStore, engine *escalation.Engine, permsService Capabilities) *Warnings {
	return &Warnings{
		warner:          warner,
		categories:      categories,
		warningStore:    warningStore,
		definitionStore: definitionStore,
		actionStore:     actionStore,
		changeStore:     changeStore,
		engine:          engine,
		perms:           permsService,
	}
}

// Definitions lists every warning definition, the custom one included.
func (h *Warnings) Definitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.definitionStore.List(r.Context())
	if err != nil {
		slog.Error("definition list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}

// CreateDefinition adds a warning definition. Requires the edit-actions
// capability.
func (h *Warnings) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	var def models.WarningDefinition
	if err := decodeJSON(r, &def); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if def.Title == "" && !def.AllowCustomTitle {
		respondError(w, http.StatusUnprocessableEntity, "a definition needs a title or a custom-title allowance")
		return
	}

	saved, err := h.categories.CreateDefinition(r.Context(), &def)
	if err != nil {
		slog.Error("definition create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// DeleteDefinition removes a warning definition and refreshes its
// category's counter. Requires the edit-actions capability.
func (h *Warnings) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := h.categories.DeleteDefinition(r.Context(), id)
	if errors.Is(err, category.ErrCustomDefinition) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		slog.Error("definition delete failed", "error", err, "definition_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if def == nil {
		respondError(w, http.StatusNotFound, "definition not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreateAction adds a points-threshold warning action. Requires the
// edit-actions capability.
func (h *Warnings) CreateAction(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapEditWarningActions) {
		return
	}

	var action models.WarningAction
	if err := decodeJSON(r, &action); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if action.Points <= 0 {
		respondError(w, http.StatusUnprocessableEntity, "points threshold must be positive")
		return
	}

	saved, err := h.actionStore.Create(r.Context(), &action)
	if err != nil {
		slog.Error("warning action create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// WarnForm returns what the warning form needs: the category tree
// visible to the moderator, definitions grouped by category, and the
// target's most recent warnings. Requires the give-warnings capability.
func (h *Warnings) WarnForm(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapGiveWarnings) {
		return
	}

	userID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tree, err := h.categories.VisibleTree(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("category tree failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	defs, err := h.definitionStore.List(r.Context())
	if err != nil {
		slog.Error("definition list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	grouped := make(map[int64][]*models.WarningDefinition)
	for _, def := range defs {
		grouped[def.CategoryID] = append(grouped[def.CategoryID], def)
	}

	recent, err := h.warningStore.Recent(r.Context(), userID, warnFormRecentLimit)
	if err != nil {
		slog.Error("warning list failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"categories":      tree,
		"definitions":     grouped,
		"recent_warnings": recent,
	})
}

// warnPayload is the request body for issuing a warning.
type warnPayload struct {
	DefinitionID        int64  `json:"warning_definition_id"`
	CustomTitle         string `json:"custom_title"`
	Points              *int   `json:"points"`
	ExpiryDate          *int64 `json:"expiry_date"`
	Notes               string `json:"notes"`
	SendAlert           bool   `json:"send_alert"`
	StartConversation   bool   `json:"start_conversation"`
	ConversationTitle   string `json:"conversation_title"`
	ConversationMessage string `json:"conversation_message"`
	ContentAction       string `json:"content_action"`
}

// Warn issues a warning against the target user on behalf of the
// session user.
func (h *Warnings) Warn(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	userID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req warnPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	warning, err := h.warner.Issue(r.Context(), warn.Request{
		UserID:              userID,
		WarnedByID:          sess.UserID,
		DefinitionID:        req.DefinitionID,
		CustomTitle:         req.CustomTitle,
		Points:              req.Points,
		ExpiryDate:          req.ExpiryDate,
		Notes:               req.Notes,
		SendAlert:           req.SendAlert,
		StartConversation:   req.StartConversation,
		ConversationTitle:   req.ConversationTitle,
		ConversationMessage: req.ConversationMessage,
		ContentAction:       req.ContentAction,
	})
	if err != nil {
		var verr *warn.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"errors": verr.Messages,
			})
			return
		}
		slog.Error("warning issue failed", "error", err, "user_id", userID, "warned_by", sess.UserID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusCreated, warning)
}

// ListWarnings returns the target user's recent warnings. Users may view
// their own; anyone else needs the view-warnings capability.
func (h *Warnings) ListWarnings(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	userID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if userID != sess.UserID && !can(w, r, h.perms, sess.UserID, models.CapViewWarnings) {
		return
	}

	warnings, err := h.warningStore.Recent(r.Context(), userID, recentWarningsLimit)
	if err != nil {
		slog.Error("warning list failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Viewers without the issuer capability are not told who warned.
	canSeeIssuer, err := h.perms.HasCapability(r.Context(), sess.UserID, models.CapViewWarningIssuer)
	if err != nil {
		slog.Error("capability check failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !canSeeIssuer {
		for i := range warnings {
			warnings[i].WarnedByID = 0
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

// DeleteWarning soft-deletes a warning. Requires the give-warnings
// capability.
func (h *Warnings) DeleteWarning(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if !can(w, r, h.perms, sess.UserID, models.CapGiveWarnings) {
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	warning, err := h.warningStore.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("warning lookup failed", "error", err, "warning_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if warning == nil {
		respondError(w, http.StatusNotFound, "warning not found")
		return
	}

	if err := h.warningStore.SoftDelete(r.Context(), id); err != nil {
		slog.Error("warning delete failed", "error", err, "warning_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// actionView is a consequence action decorated for display: its name,
// human-readable result and the effective expiry for this viewer.
type actionView struct {
	*models.ConsequenceAction
	Name            string        `json:"name"`
	Result          string        `json:"result"`
	EffectiveExpiry models.Expiry `json:"effective_expiry"`
}

// ListActions returns the target user's active consequence actions with
// expiry dates derived for the current viewer.
func (h *Warnings) ListActions(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	userID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if userID != sess.UserID && !can(w, r, h.perms, sess.UserID, models.CapViewWarningActions) {
		return
	}

	actions, err := h.changeStore.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("action list failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	canSeeDiscouraged, err := h.perms.HasCapability(r.Context(), sess.UserID, models.CapViewDiscouragedWarningActions)
	if err != nil {
		slog.Error("capability check failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Threshold-driven actions on other users need their own capability;
	// users always see the full picture on themselves.
	canSeeNonSummary := userID == sess.UserID
	if !canSeeNonSummary {
		canSeeNonSummary, err = h.perms.HasCapability(r.Context(), sess.UserID, models.CapViewNonSummaryWarningActions)
		if err != nil {
			slog.Error("capability check failed", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	groupTitles, err := h.perms.GroupTitles(r.Context())
	if err != nil {
		slog.Error("group title lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]actionView, 0, len(actions))
	for _, action := range actions {
		if action.ActionType == models.ActionTypeField && !canSeeDiscouraged {
			continue
		}
		if _, threshold := escalation.ParseActionKey(action.ChangeKey); threshold && !canSeeNonSummary {
			continue
		}

		expiry, err := h.engine.ComputeEffectiveExpiry(r.Context(), userID, action, sess.UserID)
		if err != nil {
			slog.Error("effective expiry failed", "error", err, "user_change_id", action.ID)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		views = append(views, actionView{
			ConsequenceAction: action,
			Name:              action.Name(),
			Result:            action.Result(groupTitles),
			EffectiveExpiry:   expiry,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"actions": views})
}
