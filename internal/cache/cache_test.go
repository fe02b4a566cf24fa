package cache

import (
	"errors"
	"testing"
)

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](10, nil)
	createCalled := 0
	create := func() (int, error) {
		createCalled++
		return 100, nil
	}

	val, err := c.GetOrCreate("key1", create)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if val != 100 {
		t.Errorf("expected 100, got %d", val)
	}

	val, _ = c.GetOrCreate("key1", create)
	if val != 100 {
		t.Errorf("expected cached 100, got %d", val)
	}
	if createCalled != 1 {
		t.Errorf("expected create called once, got %d", createCalled)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit 1 miss", st)
	}
}

func TestCacheGetOrCreateError(t *testing.T) {
	c := New[int, int](0, nil)
	errBoom := errors.New("boom")

	_, err := c.GetOrCreate(1, func() (int, error) { return 0, errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed create must not be cached, len=%d", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Error("expected miss after failed create")
	}
}

func TestCacheEviction(t *testing.T) {
	var evicted []int
	c := New[int, int](4, func(k, _ int) { evicted = append(evicted, k) })

	for i := 0; i < 4; i++ {
		_, _ = c.GetOrCreate(i, func() (int, error) { return i * 10, nil })
	}
	// Touch 0 so it is the most recently used.
	c.Get(0)

	_, _ = c.GetOrCreate(4, func() (int, error) { return 40, nil })

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", c.Len())
	}
	if len(evicted) != 2 {
		t.Fatalf("expected 2 evictions, got %v", evicted)
	}
	for _, k := range evicted {
		if k == 0 {
			t.Error("recently used key 0 was evicted")
		}
	}
}

func TestCacheClear(t *testing.T) {
	released := map[string]int{}
	c := New[string, int](0, func(k string, v int) { released[k] = v })

	_, _ = c.GetOrCreate("a", func() (int, error) { return 1, nil })
	_, _ = c.GetOrCreate("b", func() (int, error) { return 2, nil })

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if released["a"] != 1 || released["b"] != 2 {
		t.Errorf("eviction callback not called for all entries: %v", released)
	}
}

func TestCacheDelete(t *testing.T) {
	calls := 0
	c := New[string, int](0, func(string, int) { calls++ })
	_, _ = c.GetOrCreate("a", func() (int, error) { return 1, nil })

	if !c.Delete("a") {
		t.Error("expected Delete to report removal")
	}
	if c.Delete("a") {
		t.Error("second Delete should report false")
	}
	if calls != 0 {
		t.Error("Delete must not invoke the eviction callback")
	}
}
