// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package warn

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// Replacements is the token map substituted into the conversation and
// summary-post templates. Keys carry their braces so templates read the
// way they are stored ("Warning issued to {username}").
type Replacements map[string]string

// BuildReplacements assembles the token map for one issued warning.
// warnedBy is the identity name presented to the template's audience,
// which for conversations may already be anonymized.
func BuildReplacements(recipient *models.User, warning *models.Warning, warnedBy string, actionDescription string) Replacements {
	title := warning.Title
	if title == "" {
		title = "Warning"
	}

	return Replacements{
		"{username}":       recipient.Username,
		"{user_id}":        strconv.FormatInt(recipient.ID, 10),
		"{warning_title}":  title,
		"{warning_points}": strconv.Itoa(warning.Points),
		"{warning_expiry}": formatExpiry(warning.ExpiryDate),
		"{warned_by}":      warnedBy,
		"{action}":         actionDescription,
	}
}

// Apply substitutes every token into the template.
func (r Replacements) Apply(template string) string {
	pairs := make([]string, 0, len(r)*2)

	// Deterministic order keeps output stable for tests.
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k, r[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// formatExpiry renders an expiry date for template text.
func formatExpiry(expiryDate int64) string {
	if expiryDate == models.PermanentExpiry {
		return "Never"
	}
	return time.Unix(expiryDate, 0).UTC().Format("Jan 2, 2006 15:04 MST")
}
