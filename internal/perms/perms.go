// Package perms implements the permission oracle consumed by the warning
// core: group membership tests and named capability checks. Lookups hit
// a Valkey cache of membership lists before falling back to the database.
package perms

import (
	"context"
	"log/slog"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/cache"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
)

// Oracle answers the two questions the warning core asks about users.
// Guests (user id 0) belong to no group and hold no capability.
type Oracle interface {
	IsMemberOf(ctx context.Context, userID, groupID int64) (bool, error)
	HasCapability(ctx context.Context, userID int64, capability string) (bool, error)
}

// Service is the store-backed Oracle. groups may be nil, in which case
// every lookup goes to the database.
type Service struct {
	users  *store.UserStore
	groups *cache.GroupCache
}

// NewService creates the permission oracle.
func NewService(users *store.UserStore, groups *cache.GroupCache) *Service {
	return &Service{users: users, groups: groups}
}

// memberGroups returns the user's group ids, preferring the cache. Cache
// failures degrade to a direct read rather than failing the check.
func (s *Service) memberGroups(ctx context.Context, userID int64) ([]int64, error) {
	if s.groups != nil {
		ids, ok, err := s.groups.MemberGroups(ctx, userID)
		if err != nil {
			slog.Warn("group cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return ids, nil
		}
	}

	ids, err := s.users.GroupIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.groups != nil {
		if err := s.groups.StoreMemberGroups(ctx, userID, ids); err != nil {
			slog.Warn("group cache write failed", "user_id", userID, "error", err)
		}
	}
	return ids, nil
}

// IsMemberOf reports whether the user belongs to the group.
func (s *Service) IsMemberOf(ctx context.Context, userID, groupID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ids, err := s.memberGroups(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == groupID {
			return true, nil
		}
	}
	return false, nil
}

// HasCapability reports whether any of the user's groups grants the named
// capability.
func (s *Service) HasCapability(ctx context.Context, userID int64, capability string) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ids, err := s.memberGroups(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.users.GroupsGrant(ctx, ids, capability)
}

// GroupTitles returns the id-to-title map for all groups, cached.
func (s *Service) GroupTitles(ctx context.Context) (map[int64]string, error) {
	if s.groups != nil {
		titles, ok, err := s.groups.GroupTitles(ctx)
		if err != nil {
			slog.Warn("group titles cache read failed", "error", err)
		} else if ok {
			return titles, nil
		}
	}

	titles, err := s.users.GroupTitles(ctx)
	if err != nil {
		return nil, err
	}

	if s.groups != nil {
		if err := s.groups.StoreGroupTitles(ctx, titles); err != nil {
			slog.Warn("group titles cache write failed", "error", err)
		}
	}
	return titles, nil
}
