package store

import (
	"context"
	"testing"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

func TestUserStoreCreateAndAuth(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewUserStore(db)

	user, err := store.Create(ctx, "auth_test_user", "auth_test_user@test.invalid", "hunter22")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE user_id = $1", user.ID) })

	found, err := store.FindByUsername(ctx, "auth_test_user")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if found == nil || found.ID != user.ID {
		t.Fatalf("FindByUsername = %+v", found)
	}

	if !store.CheckPassword(found, "hunter22") {
		t.Error("correct password rejected")
	}
	if store.CheckPassword(found, "wrong") {
		t.Error("wrong password accepted")
	}

	missing, err := store.FindByUsername(ctx, "no_such_user_xyz")
	if err != nil {
		t.Fatalf("FindByUsername missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a missing username")
	}
}

func TestUserStoreGroupsAndPermissions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewUserStore(db)

	userID := testUser(t, db, "groups_test_user")

	var groupID int64
	if err := db.QueryRowContext(ctx,
		"INSERT INTO user_groups (title) VALUES ('Test Mods') RETURNING user_group_id").Scan(&groupID); err != nil {
		t.Fatalf("create group: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM user_groups WHERE user_group_id = $1", groupID) })

	if err := store.AddToGroup(ctx, userID, groupID); err != nil {
		t.Fatalf("AddToGroup: %v", err)
	}

	ids, err := store.GroupIDs(ctx, userID)
	if err != nil {
		t.Fatalf("GroupIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != groupID {
		t.Fatalf("GroupIDs = %v, want [%d]", ids, groupID)
	}

	// No grant yet.
	ok, err := store.GroupsGrant(ctx, ids, models.CapGiveWarnings)
	if err != nil {
		t.Fatalf("GroupsGrant: %v", err)
	}
	if ok {
		t.Error("capability granted before any permission row exists")
	}

	if err := store.GrantPermission(ctx, groupID, models.CapGiveWarnings); err != nil {
		t.Fatalf("GrantPermission: %v", err)
	}

	ok, err = store.GroupsGrant(ctx, ids, models.CapGiveWarnings)
	if err != nil {
		t.Fatalf("GroupsGrant after grant: %v", err)
	}
	if !ok {
		t.Error("granted capability not reported")
	}

	titles, err := store.GroupTitles(ctx)
	if err != nil {
		t.Fatalf("GroupTitles: %v", err)
	}
	if titles[groupID] != "Test Mods" {
		t.Errorf("GroupTitles[%d] = %q", groupID, titles[groupID])
	}

	if err := store.RemoveFromGroup(ctx, userID, groupID); err != nil {
		t.Fatalf("RemoveFromGroup: %v", err)
	}
	ids, err = store.GroupIDs(ctx, userID)
	if err != nil {
		t.Fatalf("GroupIDs after removal: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("GroupIDs after removal = %v, want empty", ids)
	}
}
