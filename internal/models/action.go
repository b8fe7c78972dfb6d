// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package models

import (
	"fmt"
	"strings"
	"time"
)

// Length types for warning actions. A "points" action stays in force
// while the user's cumulative active points meet the threshold, so its
// expiry is derived rather than stored.
const (
	ActionLengthPoints    = "points"
	ActionLengthDays      = "days"
	ActionLengthPermanent = "permanent"
)

// Action kinds applied to the target user.
const (
	ActionTypeGroups = "groups" // temporary user group grant
	ActionTypeField  = "field"  // boolean field flip (discouraged)
)

// WarningAction is a point-threshold rule owned by a category: once a
// user's cumulative points reach Points, the configured consequence is
// applied.
type WarningAction struct {
	ID               int64   `json:"warning_action_id"`
	CategoryID       *int64  `json:"warning_category_id"`
	Points           int     `json:"points"`
	Action           string  `json:"action"`
	ActionLengthType string  `json:"action_length_type"`
	ActionLength     int     `json:"action_length"`
	ExtraGroupIDs    []int64 `json:"extra_user_group_ids,omitempty"`
}

// ConsequenceAction is a pending change applied to a user: a temporary
// group grant or a field flip. ChangeKey encodes which warning action
// produced it ("warning_action_<id>"). A nil ExpiryDate means the
// lifetime is permanent or derived from the user's live warning set.
type ConsequenceAction struct {
	ID         int64     `json:"user_change_id"`
	UserID     int64     `json:"user_id"`
	ChangeKey  string    `json:"change_key"`
	ActionType string    `json:"action_type"`
	NewValue   string    `json:"new_value"`
	ExpiryDate *int64    `json:"expiry_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActionKeyFor builds the change key binding a consequence to the warning
// action that produced it.
func ActionKeyFor(warningActionID int64) string {
	return fmt.Sprintf("warning_action_%d", warningActionID)
}

// Name describes what kind of change the consequence applies.
func (c *ConsequenceAction) Name() string {
	switch c.ActionType {
	case ActionTypeGroups:
		return "Added to user groups"
	case ActionTypeField:
		return "Discouraged"
	default:
		return "N/A"
	}
}

// Result renders the applied value for display: the granted group titles
// for a group change, yes/no for a field flip. groupTitles comes from the
// cached group list.
func (c *ConsequenceAction) Result(groupTitles map[int64]string) string {
	switch c.ActionType {
	case ActionTypeGroups:
		var names []string
		for _, id := range SplitGroupIDs(c.NewValue) {
			if title, ok := groupTitles[id]; ok {
				names = append(names, title)
			}
		}
		if len(names) == 0 {
			return "N/A"
		}
		return strings.Join(names, ",")
	case ActionTypeField:
		if c.NewValue == "1" {
			return "Yes"
		}
		return "No"
	default:
		return "N/A"
	}
}

// ExpiryKind classifies the result of an effective-expiry computation.
type ExpiryKind int

const (
	// ExpiryNone means no expiry is currently computable: the consequence
	// is not justified by accumulated points and should be treated as
	// already lapsed.
	ExpiryNone ExpiryKind = iota
	// ExpiryAt carries a concrete unix timestamp.
	ExpiryAt
	// ExpiryPermanent means the consequence never lapses on its own.
	ExpiryPermanent
)

// Expiry is the result of an effective-expiry computation. Date is only
// meaningful when Kind is ExpiryAt.
type Expiry struct {
	Kind ExpiryKind `json:"kind"`
	Date int64      `json:"date,omitempty"`
}

// ExpiryFromDate maps a stored expiry_date value onto an Expiry,
// translating the permanent sentinel.
func ExpiryFromDate(date int64) Expiry {
	if date == PermanentExpiry {
		return Expiry{Kind: ExpiryPermanent}
	}
	return Expiry{Kind: ExpiryAt, Date: date}
}
