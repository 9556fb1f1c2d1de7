package cache_test

import (
	"testing"
	"time"

	"github.com/imranbb88/chalet-manager/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_UpdateStoresNewValue(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	got := c.Update("seq", func(old int, found bool) (int, bool) {
		if found {
			t.Fatal("expected no previous value")
		}
		return old + 1, true
	})
	if got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	got = c.Update("seq", func(old int, found bool) (int, bool) {
		return old + 1, true
	})
	if got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestCache_UpdateCanDecline(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("seq", 7)
	got := c.Update("seq", func(old int, found bool) (int, bool) {
		return 3, false
	})
	if got != 7 {
		t.Fatalf("expected untouched value 7, got %d", got)
	}
	if v, _ := c.Get("seq"); v != 7 {
		t.Fatalf("expected stored value 7, got %d", v)
	}
}
