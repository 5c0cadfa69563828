package cache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/cache"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CleanupEvictsExpired(t *testing.T) {
	c := cache.New[int](20 * time.Millisecond)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(80 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("expected expired entries to be evicted, %d left", n)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Error("expected cache to stay usable after Close")
	}
}

func TestCache_GetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (string, error) {
		calls.Add(1)
		<-release
		return "decoded", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make(chan string, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrLoad("vin:1HGCM82633A004352", load)
			if err != nil {
				t.Error(err)
			}
			results <- v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		if v != "decoded" {
			t.Errorf("expected 'decoded', got %q", v)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single load, got %d", got)
	}

	v, hit, err := c.GetOrLoad("vin:1HGCM82633A004352", load)
	if err != nil || !hit || v != "decoded" {
		t.Errorf("expected cached hit, got %q hit=%v err=%v", v, hit, err)
	}
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[int](time.Minute)
	defer c.Close()

	boom := errors.New("upstream down")
	if _, hit, err := c.GetOrLoad("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) || hit {
		t.Fatalf("expected load error, got hit=%v err=%v", hit, err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected failed load to leave no entry")
	}

	v, hit, err := c.GetOrLoad("k", func() (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Errorf("expected fresh load of 7, got %d hit=%v err=%v", v, hit, err)
	}
}

func TestCache_MaxEntriesEvictsSoonestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := cache.New[string](time.Hour, cache.WithMaxEntries(2), cache.WithClock(clock))
	defer c.Close()

	c.Set("first", "1")
	now = now.Add(time.Minute)
	c.Set("second", "2")
	now = now.Add(time.Minute)
	c.Set("third", "3")

	if n := c.Len(); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	if _, ok := c.Get("first"); ok {
		t.Error("expected the oldest entry to be evicted")
	}
	if _, ok := c.Get("third"); !ok {
		t.Error("expected the newest entry to be kept")
	}
}

func TestCache_InjectedClockExpires(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := cache.New[string](time.Hour, cache.WithClock(func() time.Time { return now }))
	defer c.Close()

	c.Set("k", "v")
	now = now.Add(59 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected entry before expiry")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire at its TTL")
	}
}
