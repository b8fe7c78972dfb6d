// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"
)

// User is a member of the platform. Moderators and administrators are
// ordinary users whose groups grant the relevant capabilities.
type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	CreatedAt    time.Time `json:"created_at"`

	// Virtual field populated by the user store.
	GroupIDs []int64 `json:"group_ids,omitempty"`
}

// Well-known capability names checked through the permission oracle.
const (
	CapViewWarnings                  = "view_warnings"
	CapViewWarningIssuer             = "view_warning_issuer"
	CapViewWarningActions            = "view_warning_actions"
	CapViewNonSummaryWarningActions  = "view_non_summary_warning_actions"
	CapViewDiscouragedWarningActions = "view_discouraged_warning_actions"
	CapEditWarningActions            = "edit_warning_actions"
	CapGiveWarnings                  = "give_warnings"
)

// EveryoneGroupID is the sentinel group id meaning "all users, including
// guests". A category whose allowed list contains it is visible to anyone.
const EveryoneGroupID int64 = -1
