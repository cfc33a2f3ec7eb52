package kv

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k1", "v1", 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "v1" {
		t.Errorf("val = %q, want %q", val, "v1")
	}
}

func TestMemoryStore_Get_ReturnsNotFoundWhenMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("Get missing key: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Get_ReturnsNotFoundWhenExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	store.SetClock(func() time.Time { return now })
	if err := store.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	store.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	if _, err := store.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("Get expired key: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Set_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	store.SetClock(func() time.Time { return now })
	if err := store.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	store.SetClock(func() time.Time { return now.Add(1000 * time.Hour) })
	if _, err := store.Get(ctx, "k1"); err != nil {
		t.Errorf("Get key without ttl: %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("Get after Delete: want ErrNotFound, got %v", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Errorf("Delete absent key: %v", err)
	}
}

func TestMemoryStore_Keys_PatternAndExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	store.SetClock(func() time.Time { return now })
	store.Set(ctx, "session:u1:s1", "a", time.Minute)
	store.Set(ctx, "session:u1:s2", "b", time.Second)
	store.Set(ctx, "session:u2:s3", "c", time.Minute)
	store.Set(ctx, "refresh:u1:s1", "d", time.Minute)

	keys, err := store.Keys(ctx, "session:u1:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "session:u1:s1" || keys[1] != "session:u1:s2" {
		t.Errorf("Keys = %v, want [session:u1:s1 session:u1:s2]", keys)
	}

	store.SetClock(func() time.Time { return now.Add(30 * time.Second) })
	keys, err = store.Keys(ctx, "session:u1:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "session:u1:s1" {
		t.Errorf("Keys after expiry = %v, want [session:u1:s1]", keys)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Exists(ctx, "k1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists should be false for missing key")
	}

	store.Set(ctx, "k1", "v1", time.Minute)
	ok, err = store.Exists(ctx, "k1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("Exists should be true after Set")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Set(ctx, "shared", "v", time.Minute)
				store.Get(ctx, "shared")
				store.Exists(ctx, "shared")
				store.Keys(ctx, "shared*")
			}
		}()
	}
	wg.Wait()
}
