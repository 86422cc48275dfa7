package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGetAndExpire(t *testing.T) {
	c := New(0)
	key := KeyFromStrings("sender-name", "42")

	if _, ok := c.Get(key); ok {
		t.Fatalf("expected no value initially")
	}

	c.Set(key, "Dr. Mehta", 50*time.Millisecond)
	if v, ok := c.GetString(key); !ok || v != "Dr. Mehta" {
		t.Fatalf("expected 'Dr. Mehta', got %q ok=%v", v, ok)
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatalf("expected expired value to be gone")
	}
}

func TestDelete(t *testing.T) {
	c := New(0)
	key := KeyFromStrings("unit", "delete")
	c.Set(key, 42, time.Second)
	if v, ok := c.Get(key); !ok || v.(int) != 42 {
		t.Fatalf("expected 42 present before delete, got %v ok=%v", v, ok)
	}
	c.Delete(key)
	if _, ok := c.Get(key); ok {
		t.Fatalf("expected deleted value to be absent")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	// touch "a" so "b" becomes the eviction candidate
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Set("c", 3, 0)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected LRU entry b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected recently used entry a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected new entry c present")
	}
}

func TestGetStringTypeMismatch(t *testing.T) {
	c := New(0)
	c.Set("n", 7, 0)
	if _, ok := c.GetString("n"); ok {
		t.Fatalf("expected non-string value to report absent")
	}
}

func TestKeyFromStringsStability(t *testing.T) {
	k1 := KeyFromStrings("a", "b", "c")
	k2 := KeyFromStrings("a", "b", "c")
	if k1 != k2 {
		t.Fatalf("expected same inputs to yield same key")
	}
	k3 := KeyFromStrings("a", "b", "d")
	if k1 == k3 {
		t.Fatalf("expected different inputs to yield different key")
	}
}

func TestSetMaxItemsTrims(t *testing.T) {
	c := New(0)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0)
	}
	c.SetMaxItems(3)
	present := 0
	for i := 0; i < 10; i++ {
		if _, ok := c.Get(fmt.Sprintf("k%d", i)); ok {
			present++
		}
	}
	if present != 3 {
		t.Fatalf("expected 3 survivors after trim, got %d", present)
	}
}
