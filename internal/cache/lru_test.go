package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string](10, time.Minute)

	c.Set("m1", "Maria Souza")

	got, ok := c.Get("m1")
	if !ok || got != "Maria Souza" {
		t.Errorf("Get(m1) = %q, %v, want Maria Souza, true", got, ok)
	}
	if _, ok := c.Get("m2"); ok {
		t.Error("Get(m2) = hit, want miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)

	c.Set("m1", "Maria Souza")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("m1"); ok {
		t.Error("Get() = hit after TTL, want miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired read, want 0", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh "a" so "b" is the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) = hit, want evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("Get(a) = miss, want hit")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("Get(c) = miss, want hit")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New[string](10, time.Minute)

	c.Set("m1", "Maria Souza")
	c.Delete("m1")

	if _, ok := c.Get("m1"); ok {
		t.Error("Get() = hit after delete, want miss")
	}
}
