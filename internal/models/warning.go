// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package models

import (
	"time"
)

// PermanentExpiry is the sentinel stored in expiry_date columns for
// warnings that never lapse on their own.
const PermanentExpiry int64 = 0

// WarningDefinition is a reusable warning template owned by a category.
// The synthetic definition with id 0 backs fully custom warnings.
type WarningDefinition struct {
	ID               int64  `json:"warning_definition_id"`
	CategoryID       int64  `json:"warning_category_id"`
	Title            string `json:"title"`
	Points           int    `json:"points"`
	ExpiryDays       int    `json:"expiry_days"` // 0 = permanent
	AllowCustomTitle bool   `json:"allow_custom_title"`
	IsCustom         bool   `json:"is_custom"` // user-authored, survives category deletion
}

// CustomDefinitionID identifies the synthetic definition used for fully
// custom warnings.
const CustomDefinitionID int64 = 0

// Warning is a warning issued to a user. The expiry date is a unix
// timestamp; PermanentExpiry means the warning never expires.
type Warning struct {
	ID           int64     `json:"warning_id"`
	UserID       int64     `json:"user_id"`
	WarnedByID   int64     `json:"warned_by"`
	DefinitionID int64     `json:"warning_definition_id"`
	Title        string    `json:"title"`
	Points       int       `json:"points"`
	WarningDate  time.Time `json:"warning_date"`
	ExpiryDate   int64     `json:"expiry_date"`
	IsDeleted    bool      `json:"is_deleted"`
	Notes        string    `json:"notes,omitempty"`
}

// IsPermanent reports whether the warning carries the permanent sentinel.
func (w *Warning) IsPermanent() bool {
	return w.ExpiryDate == PermanentExpiry
}

// IsExpired reports whether the warning has lapsed at the given time.
// Permanent warnings never expire.
func (w *Warning) IsExpired(now time.Time) bool {
	return !w.IsPermanent() && w.ExpiryDate <= now.Unix()
}
