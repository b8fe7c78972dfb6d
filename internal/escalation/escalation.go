// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

// Package escalation computes when a point-threshold consequence action
// effectively expires. Points decay as the warnings that earned them
// expire; a threshold-bound consequence lapses at the earliest moment the
// remaining points would drop below its threshold.
package escalation

import (
	"context"
	"regexp"
	"strconv"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/perms"
)

// WarningSource supplies a user's live warning set: every non-deleted
// warning whose expiry is in the future or permanent, ordered
// non-permanent first (ascending by expiry), permanent last.
type WarningSource interface {
	ActiveOrPermanent(ctx context.Context, userID int64) ([]models.Warning, error)
}

// ActionSource resolves a warning action's configured threshold and
// length type.
type ActionSource interface {
	FindByID(ctx context.Context, id int64) (*models.WarningAction, error)
}

// actionKeyPattern matches change keys derived from a warning action.
var actionKeyPattern = regexp.MustCompile(`^warning_action_(\d+)$`)

// Engine derives effective expiry timestamps. It reads warning data and
// never mutates anything.
type Engine struct {
	warnings WarningSource
	actions  ActionSource
	oracle   perms.Oracle
}

// New creates an escalation engine.
func New(warnings WarningSource, actions ActionSource, oracle perms.Oracle) *Engine {
	return &Engine{warnings: warnings, actions: actions, oracle: oracle}
}

// ComputeEffectiveExpiry returns the effective expiry of a consequence
// action for the given user, as seen by the given viewer.
//
// An explicit stored expiry passes through unchanged. An action-derived
// consequence whose warning action is points-based walks the user's live
// warning set in decay order, accumulating points: the first warning at
// which the running sum reaches the threshold is the one whose own expiry
// bounds the consequence. Permanent warnings propagate a permanent
// result; a sum that never reaches the threshold means no expiry is
// computable and the consequence should be treated as already lapsed.
//
// Viewers without the view-warnings capability receive timestamps rounded
// up to the next hour so the exact expiry minute is not exposed.
// Permanent and absent results pass through for every viewer, as does the
// system viewer (id 0).
func (e *Engine) ComputeEffectiveExpiry(ctx context.Context, userID int64, action *models.ConsequenceAction, viewerID int64) (models.Expiry, error) {
	expiry, err := e.compute(ctx, userID, action)
	if err != nil {
		return models.Expiry{}, err
	}
	return e.downgrade(ctx, expiry, viewerID)
}

func (e *Engine) compute(ctx context.Context, userID int64, action *models.ConsequenceAction) (models.Expiry, error) {
	if action.ExpiryDate != nil {
		return models.ExpiryFromDate(*action.ExpiryDate), nil
	}

	warningActionID, ok := ParseActionKey(action.ChangeKey)
	if !ok {
		return models.Expiry{Kind: models.ExpiryPermanent}, nil
	}

	warningAction, err := e.actions.FindByID(ctx, warningActionID)
	if err != nil {
		return models.Expiry{}, err
	}
	if warningAction == nil || warningAction.ActionLengthType != models.ActionLengthPoints {
		return models.Expiry{Kind: models.ExpiryPermanent}, nil
	}

	warnings, err := e.warnings.ActiveOrPermanent(ctx, userID)
	if err != nil {
		return models.Expiry{}, err
	}

	return WalkDecay(warnings, warningAction.Points), nil
}

// WalkDecay accumulates points over warnings already ordered
// shortest-lived first, permanent last, and returns the expiry of the
// first warning at which the running sum reaches the threshold.
func WalkDecay(warnings []models.Warning, threshold int) models.Expiry {
	sum := 0
	for _, w := range warnings {
		sum += w.Points
		if sum >= threshold {
			return models.ExpiryFromDate(w.ExpiryDate)
		}
	}
	return models.Expiry{Kind: models.ExpiryNone}
}

// downgrade applies the visibility rounding for restricted viewers.
func (e *Engine) downgrade(ctx context.Context, expiry models.Expiry, viewerID int64) (models.Expiry, error) {
	if expiry.Kind != models.ExpiryAt || viewerID == 0 {
		return expiry, nil
	}

	privileged, err := e.oracle.HasCapability(ctx, viewerID, models.CapViewWarnings)
	if err != nil {
		return models.Expiry{}, err
	}
	if privileged {
		return expiry, nil
	}

	expiry.Date = RoundUpToHour(expiry.Date)
	return expiry, nil
}

// RoundUpToHour rounds a unix timestamp to the start of the next hour.
func RoundUpToHour(ts int64) int64 {
	return ts - ts%3600 + 3600
}

// ParseActionKey extracts the warning action id from a change key of the
// form "warning_action_<id>".
func ParseActionKey(key string) (int64, bool) {
	m := actionKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
