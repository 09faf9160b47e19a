package cache

import (
	"testing"
	"time"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := NewLRU[string](4, time.Minute)
	c.Set("uid-1", "alice")

	got, ok := c.Get("uid-1")
	if !ok || got != "alice" {
		t.Fatalf("Get(uid-1) = %q, %v; want alice, true", got, ok)
	}
}

func TestGetMissesUnknownKey(t *testing.T) {
	c := NewLRU[string](4, time.Minute)

	if _, ok := c.Get("uid-1"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}
}

func TestExpiredEntryIsDropped(t *testing.T) {
	c := NewLRU[string](4, -time.Second)
	c.Set("uid-1", "alice")

	if _, ok := c.Get("uid-1"); ok {
		t.Fatal("expired entry still served")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after expiry, want 0", c.Len())
	}
}

func TestLeastRecentlyUsedIsEvicted(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry was evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestSetRefreshesExistingKey(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Set("uid-1", "alice")
	c.Set("uid-1", "alice_99")

	got, _ := c.Get("uid-1")
	if got != "alice_99" {
		t.Fatalf("Get after refresh = %q, want alice_99", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := NewLRU[string](4, time.Minute)
	c.Set("uid-1", "alice")
	c.Delete("uid-1")

	if _, ok := c.Get("uid-1"); ok {
		t.Fatal("deleted entry still served")
	}
}
