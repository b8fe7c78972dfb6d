package category

import (
	"context"
	"testing"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// memberOracle answers membership from a per-user group set.
type memberOracle struct {
	members map[int64][]int64
}

func (o *memberOracle) IsMemberOf(ctx context.Context, userID, groupID int64) (bool, error) {
	for _, id := range o.members[userID] {
		if id == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (o *memberOracle) HasCapability(ctx context.Context, userID int64, capability string) (bool, error) {
	return false, nil
}

func ptr(v int64) *int64 { return &v }

func TestPhraseKey(t *testing.T) {
	if got := PhraseKey(PhraseTitle, 3); got != "warning_category_title.3" {
		t.Errorf("title key = %q", got)
	}
	if got := PhraseKey(PhraseDescription, 7); got != "warning_category_description.7" {
		t.Errorf("description key = %q", got)
	}
}

func TestIsUsableEveryone(t *testing.T) {
	cat := &models.Category{ID: 1, AllowedGroupIDs: []int64{models.EveryoneGroupID}}
	byID := map[int64]*models.Category{1: cat}

	usable, err := IsUsable(context.Background(), cat, byID, 10, &memberOracle{})
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if !usable {
		t.Error("everyone sentinel should make the category usable")
	}
}

func TestIsUsableMembership(t *testing.T) {
	cat := &models.Category{ID: 1, AllowedGroupIDs: []int64{4}}
	byID := map[int64]*models.Category{1: cat}
	oracle := &memberOracle{members: map[int64][]int64{10: {4}}}

	usable, err := IsUsable(context.Background(), cat, byID, 10, oracle)
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if !usable {
		t.Error("member of an allowed group should find the category usable")
	}

	usable, err = IsUsable(context.Background(), cat, byID, 11, oracle)
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if usable {
		t.Error("non-member should not find the category usable")
	}
}

// A usable child under an unusable ancestor stays unusable: visibility
// only ever narrows going down the tree.
func TestIsUsableUnusableAncestor(t *testing.T) {
	root := &models.Category{ID: 1, AllowedGroupIDs: []int64{4}}
	child := &models.Category{ID: 2, ParentID: ptr(1), AllowedGroupIDs: []int64{models.EveryoneGroupID}}
	byID := map[int64]*models.Category{1: root, 2: child}

	usable, err := IsUsable(context.Background(), child, byID, 10, &memberOracle{})
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if usable {
		t.Error("child under an unusable ancestor should be unusable")
	}
}

func TestIsUsableDeepChain(t *testing.T) {
	root := &models.Category{ID: 1, AllowedGroupIDs: []int64{models.EveryoneGroupID}}
	mid := &models.Category{ID: 2, ParentID: ptr(1), AllowedGroupIDs: []int64{4}}
	leaf := &models.Category{ID: 3, ParentID: ptr(2), AllowedGroupIDs: []int64{models.EveryoneGroupID}}
	byID := map[int64]*models.Category{1: root, 2: mid, 3: leaf}
	oracle := &memberOracle{members: map[int64][]int64{10: {4}}}

	usable, err := IsUsable(context.Background(), leaf, byID, 10, oracle)
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if !usable {
		t.Error("member should see through the whole ancestor chain")
	}

	usable, err = IsUsable(context.Background(), leaf, byID, 11, oracle)
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if usable {
		t.Error("restricted middle ancestor should hide the leaf")
	}
}

// A dangling parent reference falls back to the category's own groups.
func TestIsUsableMissingParent(t *testing.T) {
	orphan := &models.Category{ID: 5, ParentID: ptr(99), AllowedGroupIDs: []int64{models.EveryoneGroupID}}
	byID := map[int64]*models.Category{5: orphan}

	usable, err := IsUsable(context.Background(), orphan, byID, 10, &memberOracle{})
	if err != nil {
		t.Fatalf("IsUsable: %v", err)
	}
	if !usable {
		t.Error("orphan with the everyone sentinel should be usable")
	}
}
