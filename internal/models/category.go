// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package models

import (
	"sort"
	"strconv"
	"strings"
)

// Category is a node in the warning-definition tree. Visibility is
// controlled by the allowed group list; grouping and ordering by the
// parent id, display order and the nested-set coordinates.
type Category struct {
	ID              int64   `json:"warning_category_id"`
	ParentID        *int64  `json:"parent_category_id"`
	DisplayOrder    int     `json:"display_order"`
	Lft             int     `json:"lft"`
	Rgt             int     `json:"rgt"`
	Depth           int     `json:"depth"`
	AllowedGroupIDs []int64 `json:"allowed_user_group_ids"`
	WarningCount    int     `json:"warning_count"`

	// Virtual fields populated by the category service.
	Title    string      `json:"title,omitempty"`
	Children []*Category `json:"children,omitempty"`
}

// IsRoot reports whether the category sits at the top level of the tree.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// AllowsEveryone reports whether the allowed group list carries the
// "everyone" sentinel.
func (c *Category) AllowsEveryone() bool {
	for _, id := range c.AllowedGroupIDs {
		if id == EveryoneGroupID {
			return true
		}
	}
	return false
}

// JoinGroupIDs serializes a group id list into the comma-separated form
// stored in the allowed_user_group_ids column. IDs are sorted and
// de-duplicated so the stored form is canonical.
func JoinGroupIDs(ids []int64) string {
	seen := make(map[int64]bool, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	parts := make([]string, len(uniq))
	for i, id := range uniq {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// SplitGroupIDs parses the comma-separated allowed_user_group_ids column.
// Blank and malformed entries are skipped.
func SplitGroupIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
