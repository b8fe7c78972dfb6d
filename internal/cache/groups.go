// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultGroupTTL bounds how stale a cached membership list may get.
	// Group changes outside this service become visible within this window.
	DefaultGroupTTL = 5 * time.Minute

	memberKeyPrefix = "warn:groups:user:"
	titlesKey       = "warn:groups:titles"
)

// GroupCache caches user-group membership lists and group titles in
// Valkey. Permission checks run on every category visibility test and
// every issued warning, so these lists are hot.
type GroupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGroupCache creates a group cache with the default TTL.
func NewGroupCache(client *redis.Client) *GroupCache {
	return &GroupCache{client: client, ttl: DefaultGroupTTL}
}

// MemberGroups returns the cached group ids for a user. ok is false on a
// cache miss.
func (c *GroupCache) MemberGroups(ctx context.Context, userID int64) ([]int64, bool, error) {
	payload, err := c.client.Get(ctx, memberKeyPrefix+strconv.FormatInt(userID, 10)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("group cache get: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, false, fmt.Errorf("group cache decode: %w", err)
	}
	return ids, true, nil
}

// StoreMemberGroups caches a user's group id list.
func (c *GroupCache) StoreMemberGroups(ctx context.Context, userID int64, ids []int64) error {
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("group cache encode: %w", err)
	}
	if err := c.client.Set(ctx, memberKeyPrefix+strconv.FormatInt(userID, 10), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("group cache set: %w", err)
	}
	return nil
}

// InvalidateMember drops a user's cached membership list. Called when a
// consequence action grants or revokes a group.
func (c *GroupCache) InvalidateMember(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, memberKeyPrefix+strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("group cache invalidate: %w", err)
	}
	return nil
}

// GroupTitles returns the cached id-to-title map for all groups. ok is
// false on a cache miss.
func (c *GroupCache) GroupTitles(ctx context.Context) (map[int64]string, bool, error) {
	payload, err := c.client.Get(ctx, titlesKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("group titles get: %w", err)
	}

	var titles map[int64]string
	if err := json.Unmarshal(payload, &titles); err != nil {
		return nil, false, fmt.Errorf("group titles decode: %w", err)
	}
	return titles, true, nil
}

// StoreGroupTitles caches the group title map.
func (c *GroupCache) StoreGroupTitles(ctx context.Context, titles map[int64]string) error {
	payload, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("group titles encode: %w", err)
	}
	if err := c.client.Set(ctx, titlesKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("group titles set: %w", err)
	}
	return nil
}
