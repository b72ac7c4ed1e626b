package lru

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClocked[V any](capacity int, opts ...Option[string, V]) (*Cache[string, V], *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string, V](capacity, opts...)
	c.now = clk.now
	return c, clk
}

func TestGetPut(t *testing.T) {
	c := New[string, int](2)
	c.Put("sess-a", 1)
	c.Put("sess-b", 2)

	if v, ok := c.Get("sess-a"); !ok || v != 1 {
		t.Fatalf("expected sess-a=1, got %v %v", v, ok)
	}
	if _, ok := c.Get("sess-z"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")

	k, v, evicted := c.Put("c", 3)
	if !evicted || k != "b" || v != 2 {
		t.Fatalf("expected eviction of b=2, got %v=%v evicted=%v", k, v, evicted)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be gone")
	}
}

func TestReplaceDoesNotEvict(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	if _, _, evicted := c.Put("a", 10); evicted {
		t.Fatal("replace should not evict")
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected a=10, got %v", v)
	}
	if c.Len() != 2 {
		t.Fatalf("expected len=2, got %d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)

	if !c.Delete("a") || c.Delete("a") {
		t.Fatal("delete should succeed once")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestPeekKeepsOrder(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Peek("a")
	c.Put("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("peek must not promote")
	}
}

func TestGetPromotes(t *testing.T) {
	c := New[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")

	if k, _, _ := c.Put("d", 4); k != "b" {
		t.Fatalf("expected b evicted after a was read, got %v", k)
	}
}

func TestPanicOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero capacity")
		}
	}()
	New[string, int](0)
}

func TestDefaultTTL(t *testing.T) {
	c, clk := newClocked[int](10, WithTTL[string, int](30*time.Minute))
	c.Put("a", 1)

	clk.advance(29 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a alive before ttl")
	}
	clk.advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a expired at ttl")
	}
}

func TestReplaceRefreshesExpiry(t *testing.T) {
	c, clk := newClocked[int](10, WithTTL[string, int](time.Minute))
	c.Put("a", 1)
	clk.advance(50 * time.Second)
	c.Put("a", 2)
	clk.advance(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("expected a=2 after refresh, got %v %v", v, ok)
	}
}

func TestPutWithTTL(t *testing.T) {
	c, clk := newClocked[int](10, WithTTL[string, int](time.Second))
	c.PutWithTTL("forever", 2, 0)
	c.PutWithTTL("short", 3, 500*time.Millisecond)

	clk.advance(2 * time.Second)
	if _, ok := c.Peek("short"); ok {
		t.Fatal("expected short expired")
	}
	if v, ok := c.Peek("forever"); !ok || v != 2 {
		t.Fatalf("expected forever=2, got %v %v", v, ok)
	}
}

func TestSweep(t *testing.T) {
	c, clk := newClocked[int](10)
	c.PutWithTTL("a", 1, time.Second)
	c.PutWithTTL("b", 2, time.Second)
	c.Put("c", 3)

	clk.advance(time.Minute)
	if n := c.Sweep(); n != 2 {
		t.Fatalf("expected 2 swept, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Len())
	}
	if _, ok := c.Peek("c"); !ok {
		t.Fatal("expected c to survive the sweep")
	}
	if m := c.Metrics(); m.Expirations != 2 {
		t.Fatalf("expected 2 expirations, got %d", m.Expirations)
	}
}

func TestMetrics(t *testing.T) {
	c, clk := newClocked[int](2)
	c.Put("a", 1)
	c.PutWithTTL("b", 2, time.Second)

	c.Get("a")
	c.Get("missing")
	clk.advance(time.Minute)
	c.Get("b")
	c.Put("c", 3)
	c.Put("d", 4)

	m := c.Metrics()
	if m.Hits != 1 || m.Misses != 2 || m.Expirations != 1 || m.Evictions != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if r := m.HitRate(); r < 0.33 || r > 0.34 {
		t.Fatalf("expected hit rate ~0.33, got %f", r)
	}
	if (Metrics{}).HitRate() != 0 {
		t.Fatal("expected zero hit rate with no lookups")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](100, WithTTL[int, int](time.Minute))
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Put(offset*500+i, i)
				c.Get(offset*500 + i)
				if i%100 == 0 {
					c.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}

func BenchmarkPutGet(b *testing.B) {
	c := New[int, int](1000, WithTTL[int, int](5*time.Minute))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(i, i)
		c.Get(i - 1)
	}
}

func ExampleCache() {
	cache := New[string, int](2)
	cache.Put("a", 1)
	cache.Put("b", 2)

	v, _ := cache.Get("a")
	fmt.Println(v)

	cache.Put("c", 3)
	_, ok := cache.Get("b")
	fmt.Println(ok)

	// Output:
	// 1
	// false
}
