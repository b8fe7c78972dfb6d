package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "warn:groups:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestGroupCacheMemberGroups(t *testing.T) {
	client := testValkeyClient(t)
	cache := NewGroupCache(client)
	ctx := context.Background()

	// Cold cache misses.
	_, ok, err := cache.MemberGroups(ctx, 10)
	if err != nil {
		t.Fatalf("MemberGroups: %v", err)
	}
	if ok {
		t.Error("cold cache should miss")
	}

	if err := cache.StoreMemberGroups(ctx, 10, []int64{3, 4}); err != nil {
		t.Fatalf("StoreMemberGroups: %v", err)
	}

	ids, ok, err := cache.MemberGroups(ctx, 10)
	if err != nil {
		t.Fatalf("MemberGroups: %v", err)
	}
	if !ok || len(ids) != 2 || ids[0] != 3 || ids[1] != 4 {
		t.Errorf("cached groups = %v (hit=%v)", ids, ok)
	}

	// An empty list is a valid cached value, distinct from a miss.
	if err := cache.StoreMemberGroups(ctx, 11, nil); err != nil {
		t.Fatalf("StoreMemberGroups empty: %v", err)
	}
	ids, ok, err = cache.MemberGroups(ctx, 11)
	if err != nil {
		t.Fatalf("MemberGroups empty: %v", err)
	}
	if !ok || len(ids) != 0 {
		t.Errorf("cached empty groups = %v (hit=%v)", ids, ok)
	}
}

func TestGroupCacheInvalidateMember(t *testing.T) {
	client := testValkeyClient(t)
	cache := NewGroupCache(client)
	ctx := context.Background()

	if err := cache.StoreMemberGroups(ctx, 12, []int64{5}); err != nil {
		t.Fatalf("StoreMemberGroups: %v", err)
	}
	if err := cache.InvalidateMember(ctx, 12); err != nil {
		t.Fatalf("InvalidateMember: %v", err)
	}

	_, ok, err := cache.MemberGroups(ctx, 12)
	if err != nil {
		t.Fatalf("MemberGroups: %v", err)
	}
	if ok {
		t.Error("invalidated entry should miss")
	}
}

func TestGroupCacheTitles(t *testing.T) {
	client := testValkeyClient(t)
	cache := NewGroupCache(client)
	ctx := context.Background()

	_, ok, err := cache.GroupTitles(ctx)
	if err != nil {
		t.Fatalf("GroupTitles: %v", err)
	}
	if ok {
		t.Error("cold cache should miss")
	}

	want := map[int64]string{2: "Registered", 4: "Moderators"}
	if err := cache.StoreGroupTitles(ctx, want); err != nil {
		t.Fatalf("StoreGroupTitles: %v", err)
	}

	titles, ok, err := cache.GroupTitles(ctx)
	if err != nil {
		t.Fatalf("GroupTitles: %v", err)
	}
	if !ok || titles[2] != "Registered" || titles[4] != "Moderators" {
		t.Errorf("cached titles = %v (hit=%v)", titles, ok)
	}
}
