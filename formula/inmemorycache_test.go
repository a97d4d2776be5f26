package formula

import (
	"testing"
	"time"
)

func TestInMemoryCacheSetGet(t *testing.T) {
	cache := NewInMemoryCache(DefaultCacheConfig())

	if cache.IsValid() {
		t.Error("new cache should not be valid")
	}
	if got := cache.Get(); got != nil {
		t.Errorf("Get() on empty cache = %v, want nil", got)
	}

	formulas := []*Formula{
		{ID: "f-1", Name: "One", Expression: "[A] > 1", Active: true},
		{ID: "f-2", Name: "Two", Expression: "[A] > 2", Active: true},
	}
	cache.Set(formulas)

	if !cache.IsValid() {
		t.Error("cache should be valid after Set()")
	}

	got := cache.Get()
	if len(got) != 2 {
		t.Fatalf("Get() returned %d formulas, want 2", len(got))
	}
	if got[0].ID != "f-1" || got[1].ID != "f-2" {
		t.Errorf("Get() order = [%s, %s], want [f-1, f-2]", got[0].ID, got[1].ID)
	}
}

func TestInMemoryCacheInvalidate(t *testing.T) {
	cache := NewInMemoryCache(DefaultCacheConfig())

	cache.Set([]*Formula{{ID: "f-1", Expression: "[A] > 1"}})
	cache.Invalidate()

	if cache.IsValid() {
		t.Error("cache should not be valid after Invalidate()")
	}
	if got := cache.Get(); got != nil {
		t.Errorf("Get() after Invalidate() = %v, want nil", got)
	}
}

func TestInMemoryCacheTTLExpiry(t *testing.T) {
	cache := NewInMemoryCache(CacheConfig{TTL: 10 * time.Millisecond})

	cache.Set([]*Formula{{ID: "f-1", Expression: "[A] > 1"}})
	if !cache.IsValid() {
		t.Fatal("cache should be valid immediately after Set()")
	}

	time.Sleep(20 * time.Millisecond)

	if cache.IsValid() {
		t.Error("cache should expire after TTL")
	}
	if got := cache.Get(); got != nil {
		t.Errorf("Get() after TTL expiry = %v, want nil", got)
	}
}

// TestInMemoryCacheCopies verifies that mutations of slices passed in or
// handed out do not leak into the cache.
func TestInMemoryCacheCopies(t *testing.T) {
	cache := NewInMemoryCache(DefaultCacheConfig())

	original := []*Formula{
		{ID: "f-1", Expression: "[A] > 1"},
		{ID: "f-2", Expression: "[A] > 2"},
	}
	cache.Set(original)

	original[0] = &Formula{ID: "mutated"}

	got := cache.Get()
	if got[0].ID != "f-1" {
		t.Errorf("cache slice affected by caller mutation, got ID %s", got[0].ID)
	}

	got[1] = &Formula{ID: "also-mutated"}
	again := cache.Get()
	if again[1].ID != "f-2" {
		t.Errorf("cache slice affected by reader mutation, got ID %s", again[1].ID)
	}
}
